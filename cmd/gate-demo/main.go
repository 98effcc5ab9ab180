// Command gate-demo loads a declarative YAML graph definition through
// internal/config.GraphLoader, commits it once through a flag-selected
// runner.Runner strategy, and prints the resulting verdict. It exercises
// the config-driven path.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/nilgate/gate/internal/adapt"
	"github.com/nilgate/gate/internal/config"
	"github.com/nilgate/gate/internal/core"
	"github.com/nilgate/gate/internal/domain"
	"github.com/nilgate/gate/internal/engine"
	"github.com/nilgate/gate/internal/nodes"
	"github.com/nilgate/gate/internal/runner"
	"github.com/nilgate/gate/internal/testutils"
)

const demoGraph = `
version: "1.0.0"
metadata:
  name: demo-evaluation
  description: answerer -> score_judge -> pool pipeline loaded from YAML
ports:
  - id: question
    type: string
nodes:
  - id: answerer
    type: answerer
    inputs: [question]
    outputs: [answers]
  - id: judge
    type: score_judge
    inputs: [question, answers]
    outputs: [scores]
  - id: pool
    type: pool
    inputs: [answers, scores]
    outputs: [verdict]
`

func main() {
	runnerName := flag.String("runner", "immediate", "dispatch strategy: immediate, parallel, soft-blocking, non-blocking")
	question := flag.String("question", "What causes the seasons on Earth?", "question to evaluate")
	flag.Parse()

	nodeRegistry := config.NewNodeRegistry()
	nodes.RegisterBuiltinNodes(nodeRegistry, testutils.NewMockLLMClient("demo-model"))

	portRegistry := config.NewPortTypeRegistry()
	config.RegisterBuiltinPortTypes(portRegistry)

	loader, err := config.NewGraphLoader(nodeRegistry, portRegistry)
	if err != nil {
		log.Fatal("building graph loader: ", err)
	}

	g, ports, err := loader.Load([]byte(demoGraph), adapt.NewRegistry())
	if err != nil {
		log.Fatal("loading graph: ", err)
	}

	c := core.NewCore(g, selectRunner(*runnerName))

	questionPort, ok := ports["question"].(*engine.Port[string])
	if !ok {
		log.Fatal("question port has unexpected type")
	}
	verdictPort, ok := ports["verdict"].(*engine.Port[*domain.Verdict])
	if !ok {
		log.Fatal("verdict port has unexpected type")
	}

	questionPort.Set(*question)
	c.Commit(context.Background())

	if !verdictPort.HasValue() {
		log.Fatal("no verdict produced")
	}
	v := verdictPort.Value()
	fmt.Printf("Winner: %s\n", v.WinnerAnswer.Content)
	fmt.Printf("Aggregate score: %.3f\n", v.AggregateScore)
}

func selectRunner(name string) runner.Runner {
	switch name {
	case "parallel":
		return runner.NewParallelRunner(4)
	case "soft-blocking":
		return runner.NewSoftBlockingRunner()
	case "non-blocking":
		return runner.NewNonBlockingRunner()
	default:
		return runner.NewImmediateRunner()
	}
}
