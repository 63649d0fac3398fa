package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	seqRe   = regexp.MustCompile(`-(\d+)\s*$`)
	floorRe = regexp.MustCompile(`(?i)(\d+)\s*(?:F|层)?\s*$`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// RoomCode holds the structured data parsed from a room code.
type RoomCode struct {
	Block  string
	Floor  int
	Seq    int
	Number string
}

// ParseRoomCode extracts block, floor and sequence from codes such as
// "A3#2-15", "North E3-1" or "Annex 2F-04". floorHint is used when the code
// itself carries no floor; pass 0 when there is none.
//
// The room number is the floor followed by the two-digit sequence, so
// "A3#2-15" yields Number "215".
func ParseRoomCode(raw string, floorHint int) (RoomCode, error) {
	// '#' separates block and floor; keep it as whitespace so digits do not merge
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "#", " ")
	s = strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))

	seq := 0
	if loc := seqRe.FindStringSubmatchIndex(s); loc != nil {
		if n, err := strconv.Atoi(s[loc[2]:loc[3]]); err == nil {
			seq = n
			s = strings.TrimSpace(s[:loc[0]])
		}
	}
	if seq == 0 {
		return RoomCode{}, fmt.Errorf("unable to parse room sequence from code: %q", raw)
	}

	floor := 0
	block := s
	if loc := floorRe.FindStringSubmatchIndex(s); loc != nil {
		if n, err := strconv.Atoi(s[loc[2]:loc[3]]); err == nil {
			floor = n
			block = strings.TrimSpace(s[:loc[0]])
		}
	}
	if floor == 0 && floorHint > 0 {
		floor = floorHint
	}
	if floor == 0 {
		return RoomCode{}, fmt.Errorf("unable to parse floor from code: %q", raw)
	}

	return RoomCode{
		Block:  block,
		Floor:  floor,
		Seq:    seq,
		Number: fmt.Sprintf("%d%02d", floor, seq),
	}, nil
}

// BedLabels returns the default labels "<room>-01" … "<room>-NN".
func BedLabels(roomNumber string, n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("%s-%02d", roomNumber, i+1)
	}
	return labels
}
