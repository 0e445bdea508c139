// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package cesil

// detectRowEnding is component D. When Options.RowEnding is RowEndingDetect, the
// reader calls this alongside every advance() until it returns ok == true, at which
// point the detector has made its one unambiguous observation: CR followed by LF is
// CRLF, LF with no prior CR is LF, and CR not followed by LF locks to CR-only (the
// resolution for the open question in spec.md §9). The reader freezes
// runtimeDialect.rowEnding to the returned value and never calls this again for the
// lifetime of the read.
//
// This does not consume or rewind any characters itself — the state machine's own
// pushback handling (expectingLFTimeout) already arranges for the triggering
// character to be re-seen when detection resolves to CR-only, so the detector's job
// is purely to read off which branch fired.
func detectRowEnding(state smState, rl role) (RowEnding, bool) {
	switch state {
	case stExpectingLF, stExpectingLFEscaped:
		if rl == roleLF {
			return RowEndingCRLF, true
		}
		return RowEndingCR, true
	case stRecordStart, stValueStart, stInValue, stInEscapeEscape:
		if rl == roleLF {
			return RowEndingLF, true
		}
	}
	return 0, false
}
