package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"deaddrop/internal/api"
	"deaddrop/internal/format"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

func selectOutputFormatter(name string) error {
	formatter, err := format.ByName(name)
	if err != nil {
		return err
	}
	outputFormatter = formatter
	return nil
}

func writeOutput(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeDropSummary(resp api.CreateDropResponse) error {
	lines := []string{
		fmt.Sprintf("codename: %s", resp.Codename),
		fmt.Sprintf("expires_at: %s (%s)", formatTime(resp.ExpiresAt), humanize.Time(resp.ExpiresAt)),
		fmt.Sprintf("carrier: %dx%d png, %s",
			resp.Steganography.ImageWidth, resp.Steganography.ImageHeight,
			humanize.Bytes(uint64(resp.Steganography.ImageSize))),
		fmt.Sprintf("utilization: %.1f%%", resp.Steganography.Utilization*100),
	}
	if resp.BurnAfterReading {
		lines = append(lines, "burn_after_reading: true")
	}
	if resp.MaxRetrievals > 0 {
		lines = append(lines, fmt.Sprintf("max_retrievals: %d", resp.MaxRetrievals))
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
