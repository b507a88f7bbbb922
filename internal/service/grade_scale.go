package service

import (
	"math"
	"strings"
)

// PassMark is the inclusive numeric score counted as a pass.
const PassMark = 60.0

type letterBand struct {
	min    float64
	letter string
}

// bands are checked top-down; the first minimum reached wins.
var bands = []letterBand{
	{97, "A+"}, {93, "A"}, {90, "A-"},
	{87, "B+"}, {83, "B"}, {80, "B-"},
	{77, "C+"}, {73, "C"}, {70, "C-"},
	{67, "D+"}, {60, "D"},
}

// GradePoints is the canonical 10-point table used for GPA, CGPA and final grades.
var GradePoints = map[string]float64{
	"A+": 10, "A": 9, "A-": 8.5,
	"B+": 8, "B": 7, "B-": 6.5,
	"C+": 6, "C": 5, "C-": 4.5,
	"D+": 4.5, "D": 4,
	"F": 0,
}

// LetterFromScore maps a 0-100 score to its letter grade.
func LetterFromScore(score float64) string {
	for _, b := range bands {
		if score >= b.min {
			return b.letter
		}
	}
	return "F"
}

// NormalizeLetter upper-cases and trims letter, reporting whether it is on the scale.
func NormalizeLetter(letter string) (string, bool) {
	l := strings.ToUpper(strings.TrimSpace(letter))
	_, ok := GradePoints[l]
	return l, ok
}

// round2 rounds half-to-even at two decimals.
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// percentage returns part/total*100 rounded, 0 when total is zero.
func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}
