// Package render turns queue snapshots into chat embeds. Layout follows
// the tracked-message format: one code-block table per queue kind, totals
// in the field titles, and a color keyed to overall activity.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/teralabs/queuewatch/internal/queue"
)

const (
	colorActive   = 0x2ecc71 // green
	colorModerate = 0x3498db // blue
	colorQuiet    = 0x95a5a6 // gray

	nameColumnWidth = 30
	maxNameRunes    = 28
	maxBodyRunes    = 950
)

// Namer resolves instance ids to display names.
type Namer interface {
	DisplayName(id string) string
}

// Snapshot is the rendered view's input: both kinds plus the shared
// last update time.
type Snapshot struct {
	Dungeons      []queue.Row
	Battlegrounds []queue.Row
	LastUpdated   time.Time
}

// Embed is the chat-surface embed shape.
type Embed struct {
	Color     int          `json:"color"`
	Author    EmbedAuthor  `json:"author"`
	Timestamp string       `json:"timestamp"`
	Fields    []EmbedField `json:"fields"`
	Footer    EmbedFooter  `json:"footer"`
}

type EmbedAuthor struct {
	Name string `json:"name"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

// BuildEmbed renders the snapshot for one server.
func BuildEmbed(snap Snapshot, serverName string, namer Namer) Embed {
	totalDungeons := sumQueued(snap.Dungeons)
	totalBattlegrounds := sumQueued(snap.Battlegrounds)

	return Embed{
		Color:     activityColor(totalDungeons + totalBattlegrounds),
		Author:    EmbedAuthor{Name: "TERA Queue — " + serverName},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Fields: []EmbedField{
			{
				Name:  fmt.Sprintf("🏰 Dungeons — Total: %d", totalDungeons),
				Value: formatRows(snap.Dungeons, namer),
			},
			{
				Name:  fmt.Sprintf("⚔️ Battlegrounds — Total: %d", totalBattlegrounds),
				Value: formatRows(snap.Battlegrounds, namer),
			},
		},
		Footer: EmbedFooter{Text: "Use !track to auto-update"},
	}
}

func sumQueued(rows []queue.Row) int {
	total := 0
	for _, row := range rows {
		total += row.Queued
	}
	return total
}

func activityColor(totalQueued int) int {
	switch {
	case totalQueued >= 50:
		return colorActive
	case totalQueued >= 10:
		return colorModerate
	}
	return colorQuiet
}

// formatRows builds the fixed-width code-block table, truncated to stay
// inside the surface's field size limit.
func formatRows(rows []queue.Row, namer Namer) string {
	if len(rows) == 0 {
		return "`No data`"
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		name := rowName(row, namer)
		if runes := []rune(name); len(runes) > maxNameRunes {
			name = string(runes[:maxNameRunes-1]) + "…"
		}
		lines = append(lines, fmt.Sprintf("%-*s %d", nameColumnWidth, name, row.Queued))
	}

	body := strings.Join(lines, "\n")
	if runes := []rune(body); len(runes) > maxBodyRunes {
		body = string(runes[:maxBodyRunes-3]) + "…"
	}
	return "```\n" + body + "\n```"
}

func rowName(row queue.Row, namer Namer) string {
	names := make([]string, 0, len(row.Instances))
	for _, id := range row.Instances {
		names = append(names, namer.DisplayName(id))
	}
	if len(names) == 0 {
		return "Unknown"
	}
	return strings.Join(names, ", ")
}
