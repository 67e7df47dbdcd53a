package trace

import (
	"fmt"
	"strings"

	"github.com/seelabs/xrpl-probe/internal/storage"
)

// Probe ids as stored in the probes table.
const (
	ProbeTransactor  int64 = 0
	ProbePayment     int64 = 1
	ProbeOfferCreate int64 = 2
	// ProbeKernel is the id of the optional kernel-function probe.
	ProbeKernel int64 = 16
)

// Probe describes one latency measurement point in rippled.
type Probe struct {
	ID          int64
	Name        string
	EntrySymbol string
	// ExitSymbol is empty when the probe measures a single function, in
	// which case the return of EntrySymbol ends the measurement.
	ExitSymbol string
	// KernelSymbol marks a kernel-function probe.
	KernelSymbol string
	// Outcomes records return codes. Constructors return nothing useful.
	Outcomes bool
}

// TransactorSymbol is the operator() of ripple::Transactor, entered once per
// applied transaction. The transaction pipeline starts here.
const TransactorSymbol = "_ZN6ripple10TransactorclEv"

var registry = []Probe{
	{
		ID:          ProbeTransactor,
		Name:        "transactor",
		EntrySymbol: TransactorSymbol,
	},
	{
		ID:          ProbePayment,
		Name:        "payment",
		EntrySymbol: "_ZN6ripple7Payment9preflightERKNS_16PreflightContextE",
		ExitSymbol:  "_ZN6ripple7Payment7doApplyEv",
		Outcomes:    true,
	},
	{
		ID:          ProbeOfferCreate,
		Name:        "offer_create",
		EntrySymbol: "_ZN6ripple11CreateOffer9preflightERKNS_16PreflightContextE",
		ExitSymbol:  "_ZN6ripple11CreateOffer7doApplyEv",
		Outcomes:    true,
	},
}

// Registry returns the built-in probes ordered by id.
func Registry() []Probe {
	out := make([]Probe, len(registry))
	copy(out, registry)
	return out
}

// KernelProbe builds the probe for a kernel function.
func KernelProbe(symbol string) Probe {
	return Probe{
		ID:           ProbeKernel,
		Name:         "kernel:" + symbol,
		KernelSymbol: symbol,
		Outcomes:     true,
	}
}

// SelectProbes returns the named probes, or the default set when names is
// empty. The transactor entry is shared with the transaction pipeline, so
// the default set leaves it out when transactions are traced.
func SelectProbes(names []string, transactions bool) ([]Probe, error) {
	if len(names) == 0 {
		var out []Probe
		for _, p := range registry {
			if transactions && p.ID == ProbeTransactor {
				continue
			}
			out = append(out, p)
		}
		return out, nil
	}

	out := make([]Probe, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if seen[name] {
			continue
		}
		seen[name] = true

		p, ok := lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown probe %q", name)
		}
		out = append(out, p)
	}
	return out, nil
}

func lookup(name string) (Probe, bool) {
	for _, p := range registry {
		if p.Name == name {
			return p, true
		}
	}
	return Probe{}, false
}

// probeRows converts probes to rows of the probes table.
func probeRows(probes []Probe) []storage.Probe {
	rows := make([]storage.Probe, len(probes))
	for i, p := range probes {
		rows[i] = storage.Probe{ID: p.ID, Description: p.Name}
	}
	return rows
}
