package supervisor

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/leekd123/nutify/internal/nutconf"
	"github.com/leekd123/nutify/internal/topology"
)

// Summary is the startup report: what mode was chosen, which UPS is
// monitored and where every service ended up.
type Summary struct {
	Version    string
	Mode       topology.Mode
	ModeSource string
	UPS        nutconf.UPSIdentity
	UsingDummy bool
	ConfDir    string
	Services   []ServiceState

	// UPSStatus and UPSError carry the result of a live UPS query when
	// one was made for this summary. Startup summaries leave them empty;
	// the first query happens on the deep health tick.
	UPSStatus string
	UPSError  string

	DashboardURL string
	APIURL       string
}

// Reporter prints the one-shot startup summary. It writes straight to its
// writer so the block shows up regardless of the configured log level.
type Reporter struct {
	w io.Writer
}

// NewReporter returns a reporter writing to w.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Print renders the summary block.
func (r *Reporter) Print(s Summary) {
	rule := strings.Repeat("=", 46)
	fmt.Fprintln(r.w, rule)
	fmt.Fprintf(r.w, " nutify %s\n", s.Version)
	fmt.Fprintln(r.w, strings.Repeat("-", 46))
	fmt.Fprintf(r.w, " Mode:      %s (via %s)\n", s.Mode, s.ModeSource)
	fmt.Fprintf(r.w, " UPS:       %s\n", s.UPS)
	if s.UPSError != "" {
		fmt.Fprintf(r.w, " Status:    unreachable (%s)\n", s.UPSError)
	} else if s.UPSStatus != "" {
		fmt.Fprintf(r.w, " Status:    %s\n", s.UPSStatus)
	}
	if s.UsingDummy {
		fmt.Fprintln(r.w, " NOTE:      hardware driver failed, virtual UPS in use")
	}
	fmt.Fprintf(r.w, " Config:    %s\n", s.ConfDir)
	fmt.Fprintln(r.w, " Services:")
	for _, st := range s.Services {
		pid := "-"
		if st.PID > 0 {
			pid = strconv.Itoa(st.PID)
		}
		adopted := ""
		if st.Adopted {
			adopted = "  (adopted)"
		}
		fmt.Fprintf(r.w, "   %-11s %-13s pid %s%s\n", st.Name, st.Status, pid, adopted)
	}
	if s.DashboardURL != "" {
		fmt.Fprintf(r.w, " Dashboard: %s\n", s.DashboardURL)
	}
	if s.APIURL != "" {
		fmt.Fprintf(r.w, " API:       %s\n", s.APIURL)
	}
	fmt.Fprintln(r.w, rule)
}
