package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/monomaker/monomaker/internal/domain"
)

// ── Claude-inspired warm palette ──
var (
	accent    = lipgloss.Color("#D97706") // amber
	fg        = lipgloss.Color("#E8E6E3") // warm light gray
	dim       = lipgloss.Color("#6B7280") // muted gray
	faint     = lipgloss.Color("#3F3F46") // very dim
	success   = lipgloss.Color("#22C55E") // green
	danger    = lipgloss.Color("#EF4444") // red
	warning   = lipgloss.Color("#F59E0B") // amber-yellow
	skipColor = lipgloss.Color("#4B5563") // dark gray
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Align(lipgloss.Center)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 4).
			Align(lipgloss.Center).
			Width(68)

	dimStyle      = lipgloss.NewStyle().Foreground(dim)
	faintStyle    = lipgloss.NewStyle().Foreground(faint)
	passStyle     = lipgloss.NewStyle().Foreground(success)
	failStyle     = lipgloss.NewStyle().Foreground(danger)
	warnStyle     = lipgloss.NewStyle().Foreground(warning)
	skipStyle     = lipgloss.NewStyle().Foreground(skipColor)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(fg)
	branchStyle   = lipgloss.NewStyle().Bold(true).Foreground(fg)
	separatorLine = faintStyle.Render(strings.Repeat("─", 64))
)

// RenderReport formats a migration report for terminal output. It works
// for both full runs and plan-only reports; a plan report simply has no
// synthesized outcomes.
func RenderReport(report *domain.Report) string {
	var b strings.Builder

	// ── Header ──
	title := headerStyle.Render("monomaker")
	subtitle := dimStyle.Render("Meta-repo to Monorepo Migration")
	b.WriteString(boxStyle.Render(title + "\n" + subtitle + "\n\n" + renderSummary(report)))
	b.WriteString("\n\n")

	renderRepos(&b, report.Repos)

	if report.Whitelist != nil {
		renderWhitelist(&b, report.Whitelist)
	}

	renderResolutions(&b, report.Resolutions)

	if len(report.Outcomes) > 0 {
		b.WriteString("\n  " + separatorLine + "\n\n")
		renderOutcomes(&b, report.Outcomes)
	}

	b.WriteString("\n")
	return b.String()
}

func renderSummary(report *domain.Report) string {
	synthesized := len(report.Synthesized())
	failures := len(report.Failures())

	switch {
	case failures > 0:
		return failStyle.Bold(true).Render(
			fmt.Sprintf("%d branches synthesized, %d failed", synthesized, failures))
	case synthesized > 0:
		return passStyle.Bold(true).Render(
			fmt.Sprintf("%d branches synthesized", synthesized))
	default:
		return warnStyle.Bold(true).Render(
			fmt.Sprintf("plan: %d repos, %d branches", len(report.Repos), len(report.Resolutions)))
	}
}

func renderRepos(b *strings.Builder, repos []domain.RepoDiscovered) {
	b.WriteString("  " + titleStyle.Render("Repositories") + "\n\n")
	for _, r := range repos {
		target := r.TargetSubpath
		if target == domain.MetaTargetSubpath {
			target = "(root)"
		}
		line := fmt.Sprintf("  %s %s %s",
			passStyle.Render("●"),
			branchStyle.Render(padRight(r.Name, 24)),
			dimStyle.Render(padRight(target, 24)),
		)
		detail := fmt.Sprintf("%d branches, default %s", len(r.Branches), r.DefaultBranch)
		if n := len(r.NestedSubmodules); n > 0 {
			detail += fmt.Sprintf(", %d nested pins", n)
		}
		fmt.Fprintf(b, "%s %s\n", line, faintStyle.Render(detail))
	}
	b.WriteString("\n")
}

func renderWhitelist(b *strings.Builder, wl *domain.WhitelistApplied) {
	b.WriteString("  " + titleStyle.Render("Whitelist") + "\n\n")
	fmt.Fprintf(b, "    %s %s\n", dimStyle.Render("requested"), strings.Join(wl.Requested, ", "))
	fmt.Fprintf(b, "    %s %s\n", dimStyle.Render("effective"), strings.Join(wl.Effective, ", "))
	b.WriteString("\n")
}

func renderResolutions(b *strings.Builder, resolutions []domain.BranchResolved) {
	b.WriteString("  " + titleStyle.Render("Branch Plans") + "\n\n")
	for _, res := range resolutions {
		fmt.Fprintf(b, "  %s\n", branchStyle.Render(res.Branch))
		for _, entry := range res.Plan {
			if entry.FellBack {
				fmt.Fprintf(b, "    %s %s %s\n",
					warnStyle.Render("↪"),
					padRight(entry.Repo, 24),
					warnStyle.Render("falls back to "+entry.BranchUsed),
				)
			} else {
				fmt.Fprintf(b, "    %s %s %s\n",
					passStyle.Render("●"),
					padRight(entry.Repo, 24),
					dimStyle.Render(entry.BranchUsed),
				)
			}
		}
	}
}

func renderOutcomes(b *strings.Builder, outcomes []domain.Outcome) {
	b.WriteString("  " + titleStyle.Render("Outcomes") + "\n\n")
	for _, o := range outcomes {
		switch o.Kind {
		case domain.OutcomeSynthesized:
			fmt.Fprintf(b, "    %s %s %s\n",
				passStyle.Render("✓"),
				padRight(o.Branch, 28),
				faintStyle.Render(shortSHA(o.CommitSHA)),
			)
		case domain.OutcomeSkip:
			fmt.Fprintf(b, "    %s %s %s\n",
				skipStyle.Render("○"),
				skipStyle.Render(padRight(o.Branch, 28)),
				skipStyle.Render(o.Reason),
			)
		case domain.OutcomeFailure:
			fmt.Fprintf(b, "    %s %s %s\n",
				failStyle.Render("✗"),
				padRight(o.Branch, 28),
				failStyle.Render(o.Step),
			)
			if o.Detail != "" {
				fmt.Fprintf(b, "      %s\n", dimStyle.Render(o.Detail))
			}
		case domain.OutcomePathOverride:
			fmt.Fprintf(b, "    %s %s %s\n",
				warnStyle.Render("▲"),
				padRight(o.Branch, 28),
				warnStyle.Render("kept submodule path "+o.Path),
			)
		}
	}
}

// RenderHistory formats the migration run ledger for terminal output.
func RenderHistory(entries []domain.RunEntry) string {
	if len(entries) == 0 {
		return "  " + dimStyle.Render("No migration history found.") + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + titleStyle.Render("Migration History") + "\n")
	b.WriteString("  " + faintStyle.Render(strings.Repeat("─", 50)) + "\n\n")

	for _, e := range entries {
		head := shortSHA(e.MetaHead)
		if head == "" {
			head = "·······"
		}

		ts := e.Timestamp
		if len(ts) > 10 {
			ts = ts[:10]
		}

		line := fmt.Sprintf("  %s  %s  %s",
			dimStyle.Render(padRight(ts, 10)),
			faintStyle.Render(head),
			passStyle.Render(fmt.Sprintf("%d synthesized", e.Synthesized)),
		)
		if e.Failures > 0 {
			line += "  " + failStyle.Render(fmt.Sprintf("%d failed", e.Failures))
		}

		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
