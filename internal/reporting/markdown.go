package reporting

import (
	"fmt"
	"strings"
	"time"

	"solana-vesting/internal/vesting"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Vesting Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Evaluated at: %s (%d)\n\n", time.Unix(r.SnapshotAt, 0).UTC().Format(time.RFC3339), r.SnapshotAt))
	sb.WriteString(fmt.Sprintf("Pools: %d | Schedules: %d\n\n", len(r.Pools), len(r.Schedules)))

	// Pools
	sb.WriteString("## Pools\n\n")
	if len(r.Pools) > 0 {
		sb.WriteString("| Company | Pool | Schedules | Allocated | Vested | Claimed | Claimable | Custody | Shortfall |\n")
		sb.WriteString("|---------|------|-----------|-----------|--------|---------|-----------|---------|-----------|\n")
		for _, p := range r.Pools {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %s | %s | %s | %s | %s |\n",
				escapeCell(p.CompanyName), p.PoolAddress, p.ScheduleCount,
				vesting.UIAmount(p.TotalAllocation, p.Decimals),
				vesting.UIAmount(p.Vested, p.Decimals),
				vesting.UIAmount(p.Claimed, p.Decimals),
				vesting.UIAmount(p.Claimable, p.Decimals),
				vesting.UIAmount(p.CustodyBalance, p.Decimals),
				vesting.UIAmount(p.Shortfall, p.Decimals)))
		}
	} else {
		sb.WriteString("No pools.\n")
	}
	sb.WriteString("\n")

	// Underfunded pools
	var underfunded []string
	for _, p := range r.Pools {
		if p.Shortfall > 0 {
			underfunded = append(underfunded, fmt.Sprintf("- %s: custody short by %s\n",
				escapeCell(p.CompanyName), vesting.UIAmount(p.Shortfall, p.Decimals)))
		}
	}
	if len(underfunded) > 0 {
		sb.WriteString("### Underfunded Pools\n\n")
		for _, line := range underfunded {
			sb.WriteString(line)
		}
		sb.WriteString("\n")
	}

	// Schedules
	sb.WriteString("## Schedules\n\n")
	if len(r.Schedules) > 0 {
		sb.WriteString("| Company | Schedule | Beneficiary | Allocated | Vested | Claimed | Claimable | Locked |\n")
		sb.WriteString("|---------|----------|-------------|-----------|--------|---------|-----------|--------|\n")
		for _, row := range r.Schedules {
			s := row.Snapshot
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s | %s |\n",
				escapeCell(row.CompanyName), s.ScheduleAddress, s.Beneficiary,
				vesting.UIAmount(s.TotalAllocation, row.Decimals),
				vesting.UIAmount(s.Vested, row.Decimals),
				vesting.UIAmount(s.Claimed, row.Decimals),
				vesting.UIAmount(s.Claimable, row.Decimals),
				vesting.UIAmount(s.Locked, row.Decimals)))
		}
	} else {
		sb.WriteString("No schedules.\n")
	}

	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
