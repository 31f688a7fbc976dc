package counting

import (
	"strconv"
	"strings"

	"github.com/diamondburned/arikawa/v3/discord"
)

type Verdict int

const (
	VerdictIgnore Verdict = iota
	VerdictReject
	VerdictAccept
)

func (v Verdict) String() string {
	return [...]string{"Ignore", "Reject", "Accept"}[v]
}

type Reason int

const (
	ReasonNone Reason = iota
	ReasonNotANumber
	ReasonWrongNumber
	ReasonRepeatAuthor
)

func (r Reason) String() string {
	return [...]string{"None", "NotANumber", "WrongNumber", "RepeatAuthor"}[r]
}

// Outcome is the fate of one inbound message. Number is the parsed value
// when one could be parsed, Expected the number the guild was waiting for.
type Outcome struct {
	Verdict  Verdict
	Reason   Reason
	Number   int64
	Expected int64
}

// decide applies the counting rules to a snapshot of guild state. Pure:
// no locks, no I/O, no side effects.
//
// The repeat-author rule only kicks in once a previous author exists. The
// very first number of a fresh sequence may be followed by a second from
// the same user; the third consecutive one is rejected.
func decide(count int64, lastAuthor, author discord.UserID, text string) Outcome {
	expected := count + 1

	n, ok := parseNumber(text)
	if !ok {
		return Outcome{Verdict: VerdictReject, Reason: ReasonNotANumber, Expected: expected}
	}

	if n != expected {
		return Outcome{Verdict: VerdictReject, Reason: ReasonWrongNumber, Number: n, Expected: expected}
	}

	if count > 0 && author == lastAuthor {
		return Outcome{Verdict: VerdictReject, Reason: ReasonRepeatAuthor, Number: n, Expected: expected}
	}

	return Outcome{Verdict: VerdictAccept, Number: n, Expected: expected}
}

// parseNumber accepts only the canonical base-10 form of the value,
// surrounded by nothing but optional whitespace. "007", "+5" and "5." all
// fail; a correct count must be typed exactly.
func parseNumber(text string) (int64, bool) {
	trimmed := strings.TrimSpace(text)

	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || strconv.FormatInt(n, 10) != trimmed {
		return 0, false
	}

	return n, true
}
