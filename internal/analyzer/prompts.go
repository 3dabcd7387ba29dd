package analyzer

import "github.com/hatchline/opportunity-cli/internal/model"

// systemPrompts maps each analysis type to its system prompt. All prompts
// demand a bare JSON object so extractJSON stays simple.
var systemPrompts = map[model.AnalysisType]string{
	model.AnalysisOpportunity: `You are evaluating a social-media discussion thread for business opportunity signals. Assess whether the thread describes a real, recurring problem that a product or service could solve, and how strong the demand signal is.

Respond with ONLY valid JSON, no other text:
{"opportunity_score": 0.0, "problem": "one-sentence problem statement", "demand_signals": ["..."], "reasoning": "brief explanation"}`,

	model.AnalysisMonetization: `You are evaluating the monetization potential of a problem described in a social-media discussion thread. Consider willingness to pay, plausible pricing models, and how urgently the audience needs a solution.

Respond with ONLY valid JSON, no other text:
{"monetization_score": 0.0, "pricing_models": ["..."], "willingness_to_pay": "low|medium|high", "reasoning": "brief explanation"}`,

	model.AnalysisProfile: `You are profiling the professional audience behind a social-media discussion thread. Identify the occupation or role of the people affected by the described problem and how reachable they are as a market segment.

Respond with ONLY valid JSON, no other text:
{"profession": "...", "seniority": "...", "industry": "...", "reachability": "low|medium|high", "reasoning": "brief explanation"}`,

	model.AnalysisTrust: `You are assessing how trustworthy a social-media discussion thread is as evidence of a real problem. Consider whether it reads as genuine first-hand experience, promotional content, or engagement bait.

Respond with ONLY valid JSON, no other text:
{"trust_level": "low|medium|high", "authenticity_signals": ["..."], "red_flags": ["..."], "reasoning": "brief explanation"}`,

	model.AnalysisMarket: `You are validating the market for a problem described in a social-media discussion thread. Using the thread and any additional context provided, assess existing competition, market size indicators, and differentiation room.

Respond with ONLY valid JSON, no other text:
{"market_score": 0.0, "competitors": ["..."], "market_size": "niche|mid|large", "reasoning": "brief explanation"}`,
}
