// Command demo is an interactive walkthrough of the cogs agent loop.
// It selects a provider from available API keys, registers a couple of
// demo tools, and streams an agent conversation to the terminal.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	ai "github.com/spetersoncode/cogs"
	"github.com/spetersoncode/cogs/agent"
	"github.com/spetersoncode/cogs/engine"
	"github.com/spetersoncode/cogs/event"
	"github.com/spetersoncode/cogs/retry"
	"github.com/spetersoncode/cogs/tool"
	"github.com/spetersoncode/cogs/transport/anthropic"
	"github.com/spetersoncode/cogs/transport/google"
	"github.com/spetersoncode/cogs/transport/openai"
)

var reader = bufio.NewReader(os.Stdin)

func main() {
	godotenv.Load()
	ctx := context.Background()

	fmt.Println("╔════════════════════════════════════════╗")
	fmt.Println("║        cogs - Agent Loop Demo          ║")
	fmt.Println("╚════════════════════════════════════════╝")
	fmt.Println()

	transport, label, err := selectTransport(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create transport: %v\n", err)
		return
	}
	if transport == nil {
		fmt.Println("  ✗ No API keys found. Set ANTHROPIC_API_KEY, OPENAI_API_KEY, or GOOGLE_API_KEY.")
		return
	}
	fmt.Printf("Using %s\n\n", label)

	kind := selectEngine()
	fmt.Printf("Engine: %s\n\n", kind)

	registry := tool.NewRegistry()
	registerDemoTools(registry)
	fmt.Printf("Tools: %s\n\n", strings.Join(registry.Names(), ", "))

	runner := agent.New(
		retry.NewTransport(transport, retry.DefaultConfig()),
		registry,
		agent.WithEngineKind(kind),
		agent.WithInstructions("You are a helpful assistant. Use the available tools when they help."),
	)

	fmt.Println("Type a message, or 'quit' to exit.")
	for {
		fmt.Print("\n> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}

		run := runner.ExecuteStream(ctx, ai.NewUserMessage(line))
		render(run)
		if _, err := run.Wait(); err != nil {
			fmt.Fprintf(os.Stderr, "\nRun failed: %v\n", err)
		}
	}
}

// selectTransport checks the environment for API keys and lets the user
// pick among available providers.
func selectTransport(ctx context.Context) (ai.Transport, string, error) {
	type option struct {
		label string
		build func() (ai.Transport, error)
	}

	var available []option
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		available = append(available, option{"Anthropic (Claude)", func() (ai.Transport, error) {
			return anthropic.New(key), nil
		}})
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		available = append(available, option{"OpenAI (GPT)", func() (ai.Transport, error) {
			return openai.New(key), nil
		}})
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		available = append(available, option{"Google (Gemini)", func() (ai.Transport, error) {
			return google.New(ctx, key)
		}})
	}

	if len(available) == 0 {
		return nil, "", nil
	}

	selected := 0
	if len(available) > 1 {
		fmt.Println("Available providers:")
		for i, opt := range available {
			fmt.Printf("  [%d] %s\n", i+1, opt.label)
		}
		fmt.Printf("Select provider [1-%d]: ", len(available))
		answer, _ := reader.ReadString('\n')
		fmt.Sscanf(strings.TrimSpace(answer), "%d", &selected)
		selected--
		if selected < 0 || selected >= len(available) {
			selected = 0
		}
	}

	t, err := available[selected].build()
	return t, available[selected].label, err
}

func selectEngine() engine.Kind {
	kinds := []engine.Kind{engine.Native, engine.PromptEngineering, engine.StructuredOutputs}

	fmt.Println("Tool call engines:")
	for i, k := range kinds {
		fmt.Printf("  [%d] %s\n", i+1, k)
	}
	fmt.Printf("Select engine [1-%d] (default 1): ", len(kinds))
	answer, _ := reader.ReadString('\n')

	selected := 0
	fmt.Sscanf(strings.TrimSpace(answer), "%d", &selected)
	selected--
	if selected < 0 || selected >= len(kinds) {
		selected = 0
	}
	return kinds[selected]
}

func registerDemoTools(registry *tool.Registry) {
	type calcArgs struct {
		A  float64 `json:"a" desc:"First operand" required:"true"`
		B  float64 `json:"b" desc:"Second operand" required:"true"`
		Op string  `json:"op" desc:"Operation to perform" enum:"add,sub,mul,div" required:"true"`
	}
	tool.MustRegisterFunc(registry, "calculator", "Performs basic arithmetic on two numbers.",
		func(ctx context.Context, args calcArgs) (string, error) {
			switch args.Op {
			case "add":
				return fmt.Sprintf("%g", args.A+args.B), nil
			case "sub":
				return fmt.Sprintf("%g", args.A-args.B), nil
			case "mul":
				return fmt.Sprintf("%g", args.A*args.B), nil
			case "div":
				if args.B == 0 {
					return "", fmt.Errorf("division by zero")
				}
				return fmt.Sprintf("%g", args.A/args.B), nil
			default:
				return "", fmt.Errorf("unknown operation %q", args.Op)
			}
		})

	type timeArgs struct{}
	tool.MustRegisterFunc(registry, "current_time", "Returns the current date and time.",
		func(ctx context.Context, args timeArgs) (string, error) {
			return time.Now().Format(time.RFC1123), nil
		})
}

// render prints streamed events until the run's subscription closes.
func render(run *agent.Run) {
	for ev := range run.Events() {
		switch ev.Type {
		case event.ContentDelta:
			fmt.Print(ev.Content)
		case event.ToolCall:
			fmt.Printf("\n⚙ %s(%s)\n", ev.ToolCall.Name, ev.ToolCall.Arguments)
		case event.ToolResult:
			fmt.Printf("→ %s\n", ev.ToolResult.Content)
		case event.System:
			if ev.Message != "" {
				fmt.Printf("\n[%s]\n", ev.Message)
			}
		case event.RunEnd:
			if ev.Usage != nil {
				fmt.Printf("\n\n(tokens: %d in / %d out)\n", ev.Usage.InputTokens, ev.Usage.OutputTokens)
			} else {
				fmt.Println()
			}
		}
	}
}
