package board

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/redtalon/talonbot/internal/platform"
	"github.com/redtalon/talonbot/internal/sysmon"
)

// UtilizationKey identifies the host utilization board.
const UtilizationKey = "server_utilization_status"

// RefreshUtilizationID is the custom id of the board's refresh button.
const RefreshUtilizationID = "refresh_server_utilization_status_message"

// Sampler provides one utilization reading.
type Sampler func(ctx context.Context) sysmon.Utilization

// Utilization projects host resource usage into one board message. The
// embed turns red when any metric crosses its warning threshold.
type Utilization struct {
	sync      *Synchronizer
	sample    Sampler
	channelID string
	now       func() time.Time
}

func NewUtilization(sync *Synchronizer, sample Sampler, channelID string) *Utilization {
	return &Utilization{sync: sync, sample: sample, channelID: channelID, now: time.Now}
}

func (u *Utilization) Sync(ctx context.Context) error {
	return u.sync.Sync(ctx, UtilizationKey, u.channelID, u.render)
}

func (u *Utilization) render(ctx context.Context) (platform.Content, error) {
	sample := u.sample(ctx)

	color := colorGreen
	if sample.Warning() {
		color = colorRed
	}

	embed := platform.Embed{
		Title:      "Server Utilization",
		Color:      color,
		Timestamp:  u.now(),
		FooterText: "Last updated",
		Fields: []platform.EmbedField{
			{Name: "CPU Usage", Value: pctLabel(sample.CPU), Inline: true},
			{Name: "Memory Usage", Value: usageLabel(sample.Mem, sample.MemUsed, sample.MemTotal), Inline: true},
			{Name: "Disk Usage", Value: usageLabel(sample.Disk, sample.DiskUsed, sample.DiskTotal), Inline: true},
		},
	}
	return platform.Content{
		Embeds: []platform.Embed{embed},
		Buttons: []platform.Button{{
			Emoji:    "🔄",
			CustomID: RefreshUtilizationID,
			Style:    platform.ButtonSecondary,
		}},
	}, nil
}

func pctLabel(m sysmon.Metric) string {
	if !m.OK {
		return "unknown"
	}
	return fmt.Sprintf("%.2f%%", m.Pct)
}

func usageLabel(m sysmon.Metric, used, total uint64) string {
	if !m.OK {
		return "unknown"
	}
	if total == 0 {
		return fmt.Sprintf("%.2f%%", m.Pct)
	}
	return fmt.Sprintf("%.2f%%\n%s / %s", m.Pct, humanize.IBytes(used), humanize.IBytes(total))
}
