// Quickstart runs the pipeline end to end against an in-memory corpus,
// using a scripted model so no API key is needed. It shows the library
// wiring: retriever, invoker, pipeline options, and the run record you
// get back.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/felixgeelhaar/groundwork/application"
	"github.com/felixgeelhaar/groundwork/domain/schema"
	"github.com/felixgeelhaar/groundwork/infrastructure/model"
	"github.com/felixgeelhaar/groundwork/infrastructure/retrieval"
	"github.com/felixgeelhaar/groundwork/infrastructure/storage/memory"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	retriever := retrieval.NewMemoryRetriever()
	retriever.Add("handbook.md", "section 4.2",
		"Full-time employees receive 15 vacation days per year. Unused days do not roll over.")
	retriever.Add("faq.md", "question 7",
		"Vacation requests go through the HR portal and need two weeks notice.")

	invoker := model.NewScriptedInvoker(
		model.ScriptStep{Value: schema.PlanOutput{Steps: []string{
			"find the vacation day allowance",
			"find how requests are made",
			"summarize both with citations",
		}}},
		model.ScriptStep{Value: schema.ResearchOutput{Status: "ok", Facts: []schema.ExtractedFact{
			{Fact: "Full-time employees get 15 vacation days per year.", Citations: []int{0}},
			{Fact: "Requests go through the HR portal with two weeks notice.", Citations: []int{1}},
		}}},
		model.ScriptStep{Value: schema.WriterOutput{DraftMarkdown: "## Deliverable\n\n" +
			"Employees receive 15 vacation days per year [1]; unused days do not roll " +
			"over [1]. Requests are made through the HR portal with two weeks notice [2].\n"}},
		model.ScriptStep{Value: schema.VerifierOutput{Verdict: schema.VerdictPass}},
	)

	store := memory.NewRunStore()

	pipeline, err := application.New(invoker, retriever,
		application.WithTopK(5),
		application.WithMaxRetries(2),
		application.WithStore(store),
	)
	if err != nil {
		return err
	}

	state, err := pipeline.Run(context.Background(), "Summarize our vacation policy")
	if err != nil {
		return err
	}

	fmt.Printf("Run %s finished in stage %s\n\n", state.ID, state.CurrentStage)
	fmt.Println(state.FinalOutput)

	fmt.Println("Citations:")
	for i, c := range state.Citations {
		fmt.Printf("  [%d] %s (%s)\n", i+1, c.DocID, c.Location)
	}

	fmt.Println("\nAudit log:")
	for _, entry := range state.Log {
		fmt.Printf("  %-12s %-24s %s\n", entry.Stage, entry.Action, entry.Outcome)
	}

	return nil
}
