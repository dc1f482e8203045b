package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/funnel"
	"github.com/meikuraledutech/funnel/memory"
	"github.com/meikuraledutech/funnel/postgres"
)

func main() {
	ctx := context.Background()

	// Postgres when DATABASE_URL is set, memory otherwise.
	var store funnel.Store = memory.New()
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer pool.Close()
		store = postgres.New(pool)
	}

	// 1. Create tables
	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	fmt.Println("schema created")

	// ── Build the funnel through the stage store ──────────────────────
	ss := funnel.NewStageStore(nil)
	intro := ss.Create("Welcome")
	role := ss.Create("What is your role?")
	dev := ss.Create("Preferred language?")
	design := ss.Create("Preferred design tool?")
	result := ss.Create("Thanks!")

	must(ss.SetComponents(intro.ID, []funnel.Component{
		{ID: "headline", Kind: funnel.KindText, Data: json.RawMessage(`{"text": "Tell us about yourself"}`)},
	}))
	must(ss.SetComponents(role.ID, []funnel.Component{{
		ID:   "role",
		Kind: funnel.KindChoice,
		Options: []funnel.Option{
			{ID: "developer", Label: "Developer", Destination: funnel.DestinationNext},
			{ID: "designer", Label: "Designer", Destination: funnel.DestinationSpecific, DestinationStageID: design.ID},
		},
	}}))
	must(ss.SetComponents(dev.ID, []funnel.Component{
		{ID: "go", Kind: funnel.KindButton, ButtonAction: funnel.ButtonStage, ButtonTarget: result.ID},
	}))
	must(ss.Connect(role.ID, funnel.Connection{SourceBranchID: funnel.BranchID("role", "designer"), ToStageID: design.ID}))

	f := &funnel.Funnel{ID: "onboarding-funnel", Name: "Onboarding", Stages: ss.Snapshot()}
	if err := store.SaveFunnel(ctx, f); err != nil {
		log.Fatalf("save funnel: %v", err)
	}
	fmt.Println("funnel saved")

	// ── Resolve + validate ────────────────────────────────────────────
	g := funnel.Resolve(f.Stages)
	fmt.Println("\nresolved graph:")
	printJSON(g)
	fmt.Println("\nvalidation:")
	printJSON(funnel.Validate(f.Stages, g))

	// ── Delete a stage: the dangling reference shows up ───────────────
	must(ss.Remove(result.ID))
	fmt.Println("\nvalidation after removing the result stage:")
	printJSON(funnel.Validate(ss.Snapshot(), nil))

	// ── Sessions + report ─────────────────────────────────────────────
	for _, tr := range []funnel.SessionTrace{
		{VisitedStageIDs: []string{intro.ID, role.ID, dev.ID, result.ID}, Completed: true},
		{VisitedStageIDs: []string{intro.ID, role.ID, design.ID, result.ID}, Completed: true},
		{VisitedStageIDs: []string{intro.ID, role.ID}},
	} {
		if _, err := store.RecordSession(ctx, f.ID, &tr); err != nil {
			log.Fatalf("record session: %v", err)
		}
	}
	traces, err := store.ListSessions(ctx, f.ID)
	if err != nil {
		log.Fatalf("list sessions: %v", err)
	}
	fmt.Println("\nfunnel report:")
	printJSON(funnel.Aggregate(g, traces))

	// ── Cleanup ───────────────────────────────────────────────────────
	if err := store.DeleteFunnel(ctx, f.ID); err != nil {
		log.Fatalf("delete: %v", err)
	}
	fmt.Println("\nfunnel deleted")
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
