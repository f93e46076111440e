package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kokou-stm/kalanso/internal/llm"
	"github.com/kokou-stm/kalanso/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect LLM request events",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM events",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")

		e, err := setup(cmd, true)
		if err != nil {
			return err
		}
		defer e.Close()

		events, err := e.store.EventRepo().QueryLLMEvents(cmd.Context(), store.QueryOpts{Limit: limit, Purpose: purpose})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No LLM events found.")
			return nil
		}

		fmt.Fprintf(out, "%-5s  %-19s  %-13s  %-28s  %-6s  %-6s  %-7s  %-9s  %s\n",
			"Seq", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "Cost", "OK")
		fmt.Fprintln(out, strings.Repeat("─", 108))

		for _, ev := range events {
			ok := "✓"
			if !ev.Success {
				ok = "✗ " + truncate(ev.ErrorMessage, 40)
			}
			cost := "?"
			if c := llm.LookupCost(ev.Model); c != nil {
				cost = formatCost(c.Cost(ev.InputTokens, ev.OutputTokens))
			}
			fmt.Fprintf(out, "%-5d  %-19s  %-13s  %-28s  %-6d  %-6d  %-7d  %-9s  %s\n",
				ev.Sequence,
				ev.Timestamp.Local().Format("2006-01-02 15:04:05"),
				truncate(ev.Purpose, 13),
				truncate(ev.Model, 28),
				ev.InputTokens,
				ev.OutputTokens,
				ev.LatencyMs,
				cost,
				ok,
			)
		}
		return nil
	},
}

type modelUsage struct {
	model               string
	calls, failures     int
	inTokens, outTokens int
	latencyMs           int64
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregated LLM token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd, true)
		if err != nil {
			return err
		}
		defer e.Close()

		events, err := e.store.EventRepo().QueryLLMEvents(cmd.Context(), store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No LLM usage recorded yet.")
			return nil
		}

		byModel := map[string]*modelUsage{}
		for _, ev := range events {
			u := byModel[ev.Model]
			if u == nil {
				u = &modelUsage{model: ev.Model}
				byModel[ev.Model] = u
			}
			u.calls++
			if !ev.Success {
				u.failures++
			}
			u.inTokens += ev.InputTokens
			u.outTokens += ev.OutputTokens
			u.latencyMs += ev.LatencyMs
		}
		usage := make([]*modelUsage, 0, len(byModel))
		for _, u := range byModel {
			usage = append(usage, u)
		}
		sort.Slice(usage, func(i, j int) bool { return usage[i].calls > usage[j].calls })

		fmt.Fprintln(out, "Estimated Cost (USD)")
		fmt.Fprintln(out, strings.Repeat("─", 84))
		fmt.Fprintf(out, "%-32s  %6s  %6s  %10s  %10s  %8s  %9s\n",
			"Model", "Calls", "Failed", "Input", "Output", "Avg Ms", "Cost")
		fmt.Fprintln(out, strings.Repeat("─", 84))

		var totalCost float64
		var unknown []string
		for _, u := range usage {
			cost := "?"
			if c := llm.LookupCost(u.model); c != nil {
				v := c.Cost(u.inTokens, u.outTokens)
				totalCost += v
				cost = formatCost(v)
			} else {
				unknown = append(unknown, u.model)
			}
			fmt.Fprintf(out, "%-32s  %6d  %6d  %10d  %10d  %8d  %9s\n",
				truncate(u.model, 32), u.calls, u.failures, u.inTokens, u.outTokens,
				u.latencyMs/int64(u.calls), cost)
		}
		fmt.Fprintln(out, strings.Repeat("─", 84))
		label := "TOTAL"
		if len(unknown) > 0 {
			label = "TOTAL (partial)"
		}
		fmt.Fprintf(out, "%-32s  %6d  %6s  %10s  %10s  %8s  %9s\n", label, len(events), "", "", "", "", formatCost(totalCost))
		if len(unknown) > 0 {
			fmt.Fprintf(out, "\nPricing unavailable for: %s\n", strings.Join(unknown, ", "))
		}
		return nil
	},
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Filter by purpose (e.g. review-draft)")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmStatsCmd)
}
