package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SessionFile represents a session log file on disk.
type SessionFile struct {
	Path      string
	Name      string
	Size      int64
	ModTime   time.Time
	NumEvents int
}

// ListSessions finds .jsonl session log files in dir.
func ListSessions(dir string) ([]SessionFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading session directory: %w", err)
	}

	var files []SessionFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), "-session.jsonl") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(dir, e.Name())
		n, _ := countLines(path) //nolint:errcheck
		files = append(files, SessionFile{
			Path:      path,
			Name:      e.Name(),
			Size:      info.Size(),
			ModTime:   info.ModTime(),
			NumEvents: n,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})

	return files, nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close() //nolint:errcheck
	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		n++
	}
	return n, scanner.Err()
}

// ReadEvents parses all events from a session log file.
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening session file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var events []Event
	scanner := bufio.NewScanner(f)
	// Increase buffer for large lines.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue // skip malformed lines
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	return events, nil
}

// RenderTimeline writes a human-readable session timeline to w.
//
//nolint:errcheck // display-only writes; errors are not actionable
func RenderTimeline(w io.Writer, events []Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}

	fmt.Fprintln(w, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(w, " PIPELINE TIMELINE")
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(w)

	start := events[0].Timestamp
	for _, ev := range events {
		elapsed := ev.Timestamp.Sub(start)
		ts := formatDuration(elapsed)

		switch ev.Type {
		case EventPipelineStart:
			count := jsonNumber(ev.Data["step_count"])
			fmt.Fprintf(w, "[%s] 🚀 Pipeline started  steps=%d\n", ts, count)

		case EventStepStart:
			name, _ := ev.Data["step"].(string)        //nolint:errcheck
			cmd, _ := ev.Data["command_line"].(string) //nolint:errcheck
			num := jsonNumber(ev.Data["step_num"])
			total := jsonNumber(ev.Data["total_steps"])
			fmt.Fprintf(w, "[%s] ▶  Step %d/%d: %s\n", ts, num, total, name)
			if cmd != "" {
				fmt.Fprintf(w, "           $ %s\n", cmd)
			}

		case EventStepComplete:
			name, _ := ev.Data["step"].(string)         //nolint:errcheck
			succeeded, _ := ev.Data["succeeded"].(bool) //nolint:errcheck
			status := jsonNumber(ev.Data["exit_status"])
			dur := jsonNumber(ev.Data["duration_ms"])
			icon := "✓"
			if !succeeded {
				icon = "✗"
			}
			fmt.Fprintf(w, "[%s] %s  Step complete: %s [exit %d] (%dms)\n", ts, icon, name, status, dur)

		case EventCleanup:
			name, _ := ev.Data["step"].(string) //nolint:errcheck
			fmt.Fprintf(w, "[%s]    🧹 Cleanup %s: %s\n", ts, name, joinPaths(ev.Data["paths"]))

		case EventError:
			msg, _ := ev.Data["message"].(string) //nolint:errcheck
			fmt.Fprintf(w, "[%s] ❌ Error: %s\n", ts, msg)

		case EventPipelineComplete:
			success, _ := ev.Data["success"].(bool) //nolint:errcheck
			dur := jsonNumber(ev.Data["duration_ms"])
			if success {
				fmt.Fprintf(w, "[%s] 🏁 Pipeline succeeded  (%dms)\n", ts, dur)
			} else {
				failed := jsonNumber(ev.Data["failed_step"])
				status := jsonNumber(ev.Data["exit_status"])
				fmt.Fprintf(w, "[%s] 🏁 Pipeline failed at step %d  exit=%d  (%dms)\n", ts, failed+1, status, dur)
			}

		default:
			fmt.Fprintf(w, "[%s] %s %v\n", ts, ev.Type, ev.Data)
		}
	}
	fmt.Fprintln(w)
}

// joinPaths renders a JSON-decoded list of paths.
func joinPaths(v any) string {
	items, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return strings.Join(ss, ", ")
		}
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%6dms", d.Milliseconds())
	}
	return fmt.Sprintf("%6.1fs", d.Seconds())
}

// jsonNumber extracts a number from a JSON-decoded interface{} (float64 or json.Number).
func jsonNumber(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		i, _ := n.Int64() //nolint:errcheck
		return int(i)
	}
	return 0
}
