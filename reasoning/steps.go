package reasoning

import "fmt"

// StepTemplate is one fixed reasoning step.
type StepTemplate struct {
	Title string
	// Template has a single %s for the problem.
	Template string
}

// Prompt fills in the problem.
func (t StepTemplate) Prompt(problem string) string {
	return fmt.Sprintf(t.Template, problem)
}

// DefaultSteps are the four steps of every analysis.
var DefaultSteps = []StepTemplate{
	{
		Title: "Problem Analysis",
		Template: `Analyze this problem: "%s"

Break down the problem into its key components:
1. What is the core issue?
2. What are the main factors involved?
3. What context is important to consider?

Provide a clear analysis of what we're dealing with.`,
	},
	{
		Title: "Information Gathering",
		Template: `Based on the problem: "%s"

What information do we need to make a good decision? Consider:
1. What facts are relevant?
2. What assumptions might we be making?
3. What additional context would be helpful?
4. What are the key constraints or requirements?

Identify the most important information needed.`,
	},
	{
		Title: "Option Generation",
		Template: `For the problem: "%s"

Generate potential approaches or solutions:
1. What are the different ways to address this?
2. What are the main options available?
3. Are there any creative or alternative approaches?
4. What would be the conventional wisdom?

List and briefly describe the main options.`,
	},
	{
		Title: "Evaluation & Decision",
		Template: `Evaluate the options for: "%s"

Analyze each approach considering:
1. Pros and cons of each option
2. Feasibility and practicality
3. Potential risks and benefits
4. Resource requirements
5. Likelihood of success

Make a reasoned recommendation based on this analysis.`,
	},
}
