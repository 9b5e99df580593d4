// Package reasoning implements the chain-of-thought system: a coordinator
// takes the user's problem, a step reasoner asks the model for four fixed
// analysis steps in turn, and a conclusion node synthesises them.
package reasoning

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/agentdesk/graph"
	"github.com/smallnest/agentdesk/llm"
	"github.com/smallnest/agentdesk/log"
	"github.com/smallnest/agentdesk/prebuilt"
)

// Node names.
const (
	Coordinator  = "coordinator"
	StepReasoner = "step_reasoner"
	Conclusion   = "conclusion"
)

const (
	Introduction = "Hello! I'm your Chain of Thought Reasoning Agent. I'll help you think through problems step by step. What would you like me to analyze?"
	NeedProblem  = "I need a problem to analyze. Please provide a question or issue you'd like me to think through."
	NeedSteps    = "I need more reasoning steps before I can provide a conclusion."

	reasonerSystemPrompt  = "You are a logical reasoning expert. Provide clear, structured thinking for each step."
	synthesisSystemPrompt = "You are an expert at synthesizing logical reasoning into clear, actionable conclusions."
	minStepsForConclusion = 3
	notCompleted          = "Not completed"
)

// Step is one completed reasoning step.
type Step struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// State is the reasoning conversation.
type State struct {
	Messages       []prebuilt.Message `json:"messages"`
	CurrentProblem string             `json:"current_problem,omitempty"`
	StepCount      int                `json:"step_count"`
	Steps          []Step             `json:"steps,omitempty"`
	Conclusion     string             `json:"conclusion,omitempty"`
	// Route is the coordinator's decision: StepReasoner or END.
	Route string `json:"route,omitempty"`
}

// Options configures the reasoning graph.
type Options struct {
	// Steps overrides the step templates, mostly for tests.
	Steps []StepTemplate
	// Retries re-runs a node whose model call failed upstream.
	Retries int
}

type system struct {
	model llms.Model
	steps []StepTemplate
}

func (s *system) coordinator(_ context.Context, state State) (State, error) {
	last, ok := prebuilt.LastMessage(state.Messages)
	if !ok {
		state.Messages = append(state.Messages, prebuilt.AssistantMessage(Coordinator, Introduction))
		state.Route = graph.END
		return state, nil
	}
	if last.Role != prebuilt.RoleUser {
		state.Route = graph.END
		return state, nil
	}

	problem := strings.TrimSpace(last.Content)
	if problem == "" {
		state.Messages = append(state.Messages, prebuilt.AssistantMessage(Coordinator, NeedProblem))
		state.Route = graph.END
		return state, nil
	}

	start := fmt.Sprintf(`🧠 **Starting Chain of Thought Analysis**

I need to think through this problem step by step: "%s"

Let me break this down systematically using a structured reasoning approach.`, problem)

	state.Messages = append(state.Messages, prebuilt.AssistantMessage(Coordinator, start))
	state.CurrentProblem = problem
	state.StepCount = 0
	state.Steps = nil
	state.Conclusion = ""
	state.Route = StepReasoner
	return state, nil
}

func (s *system) stepReasoner(ctx context.Context, state State) (State, error) {
	if state.CurrentProblem == "" {
		state.Messages = append(state.Messages, prebuilt.AssistantMessage(StepReasoner, NeedProblem))
		return state, nil
	}
	if state.StepCount >= len(s.steps) {
		return state, nil
	}
	if s.model == nil {
		return state, llm.ErrMissingAPIKey
	}

	tmpl := s.steps[state.StepCount]
	log.Debug("reasoning: step %d %s", state.StepCount+1, tmpl.Title)
	answer, err := llm.GenerateText(ctx, s.model, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, reasonerSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, tmpl.Prompt(state.CurrentProblem)),
	})
	if err != nil {
		return state, err
	}

	state.StepCount++
	state.Steps = append(state.Steps, Step{Title: tmpl.Title, Content: answer})
	msg := fmt.Sprintf("🔍 **Step %d: %s**\n\n%s", state.StepCount, tmpl.Title, answer)
	state.Messages = append(state.Messages, prebuilt.AssistantMessage(StepReasoner, msg))
	return state, nil
}

func (s *system) conclusion(ctx context.Context, state State) (State, error) {
	if len(state.Steps) < minStepsForConclusion {
		state.Messages = append(state.Messages, prebuilt.AssistantMessage(Conclusion, NeedSteps))
		return state, nil
	}
	if s.model == nil {
		return state, llm.ErrMissingAPIKey
	}

	answer, err := llm.GenerateText(ctx, s.model, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, synthesisSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, synthesisPrompt(state.CurrentProblem, state.Steps)),
	})
	if err != nil {
		return state, err
	}

	state.Conclusion = answer
	state.Messages = append(state.Messages, prebuilt.AssistantMessage(Conclusion, conclusionMessage(answer)))
	return state, nil
}

func synthesisPrompt(problem string, steps []Step) string {
	step := func(i int) string {
		if i < len(steps) {
			return steps[i].Content
		}
		return notCompleted
	}
	return fmt.Sprintf(`Based on the step-by-step analysis of: "%s"

Here are the reasoning steps taken:
1. Problem Analysis: %s
2. Information Gathering: %s
3. Option Generation: %s
4. Evaluation & Decision: %s

Provide a clear, actionable conclusion that:
1. Summarizes the key insights from the analysis
2. Gives a specific recommendation or answer
3. Explains the reasoning behind the recommendation
4. Acknowledges any limitations or assumptions
5. Suggests next steps if applicable

Make this practical and actionable.`, problem, step(0), step(1), step(2), step(3))
}

func conclusionMessage(answer string) string {
	return fmt.Sprintf(`🎯 **Final Conclusion & Recommendation**

%s

---

**Reasoning Process Summary:**
✅ **Step 1: Problem Analysis** - Identified core issues and key factors
✅ **Step 2: Information Gathering** - Determined what information is needed
✅ **Step 3: Option Generation** - Explored different approaches and solutions
✅ **Step 4: Evaluation & Decision** - Analyzed pros/cons and made recommendations

This systematic approach ensures thorough consideration of all aspects of your question.`, answer)
}

// NewGraph builds the reasoning graph. model may be nil to inspect the graph.
func NewGraph(model llms.Model, opts Options) *graph.StateGraph[State] {
	s := &system{model: model, steps: opts.Steps}
	if len(s.steps) == 0 {
		s.steps = DefaultSteps
	}

	g := graph.NewStateGraph[State]()
	g.AddNode(Coordinator, "Takes the problem and starts the analysis", s.coordinator)
	g.AddNode(StepReasoner, "Runs one reasoning step", s.stepReasoner)
	g.AddNode(Conclusion, "Synthesises the steps into a recommendation", s.conclusion)

	g.AddEdge(graph.START, Coordinator)
	g.AddConditionalEdge(Coordinator, func(_ context.Context, state State) string {
		if state.Route == StepReasoner {
			return StepReasoner
		}
		return "end"
	}, map[string]string{StepReasoner: StepReasoner, "end": graph.END})

	total := len(s.steps)
	g.AddConditionalEdge(StepReasoner, func(_ context.Context, state State) string {
		switch {
		case state.CurrentProblem == "":
			return "end"
		case state.StepCount < total:
			return StepReasoner
		default:
			return Conclusion
		}
	}, map[string]string{StepReasoner: StepReasoner, Conclusion: Conclusion, "end": graph.END})
	g.AddEdge(Conclusion, graph.END)
	g.SetRetryPolicy(llm.RetryPolicy(opts.Retries))
	return g
}

// New compiles the reasoning graph.
func New(model llms.Model, opts Options, compileOpts ...graph.CompileOption[State]) (*graph.Runnable[State], error) {
	return NewGraph(model, opts).Compile(compileOpts...)
}
