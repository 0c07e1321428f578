package fallback

import (
	"fmt"
	"regexp"
	"strconv"
)

// GraceMinutes is 9:15 AM expressed in minutes since midnight.
const GraceMinutes = 9*60 + 15

// LatesPerDeduction is the number of late arrivals that cost half a day of
// casual leave.
const LatesPerDeduction = 3

var (
	timePattern      = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*(am|pm)?`)
	lateCountPattern = regexp.MustCompile(`(\d+)\s*(times?|lates?)`)
)

// arrivalTime judges a clock time in the question against the grace period.
func arrivalTime(q string) (string, bool) {
	m := timePattern.FindStringSubmatch(q)
	if m == nil || !containsAny(q, "late", "arrival", "marked") {
		return "", false
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	switch {
	case m[3] == "pm" && hour != 12:
		hour += 12
	case m[3] == "am" && hour == 12:
		hour = 0
	}

	arrival := hour*60 + minute
	if arrival > GraceMinutes {
		return withBanner(fmt.Sprintf(
			"Arriving at %s is considered **Late** since it's after the grace period of 9:15 AM (late by %d minutes).\n\n"+
				"According to the attendance policy: Employees are allowed a grace period of 15 minutes (up to 9:15 AM). "+
				"Arrival after this time will be marked as \"Late.\" Three late arrivals in a month result in a deduction of half a day of Casual Leave.",
			m[0], arrival-GraceMinutes)), true
	}
	return withBanner(fmt.Sprintf(
		"Arriving at %s is **On Time** since it's within the grace period of 9:15 AM.\n\n"+
			"The standard work hours are 9:00 AM to 6:00 PM, with a grace period up to 9:15 AM.",
		m[0])), true
}

// lateCount applies the deduction rule to a number of late arrivals.
func lateCount(q string) (string, bool) {
	m := lateCountPattern.FindStringSubmatch(q)
	if m == nil || !containsAny(q, "consequence", "happen", "penalty", "deduct") {
		return "", false
	}
	count, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false
	}

	if count >= LatesPerDeduction {
		return withBanner(fmt.Sprintf(
			"Being late **%d times** results in:\n\n"+
				"• **%d deduction(s)** of half a day of Casual Leave (since every 3 late arrivals = 0.5 day CL deduction)\n"+
				"• **%d additional late(s)** (approaching the next deduction threshold)\n\n"+
				"According to the attendance policy: Three late arrivals in a month result in a deduction of half a day of Casual Leave. "+
				"Arrival after 9:15 AM is marked as \"Late.\"",
			count, count/LatesPerDeduction, count%LatesPerDeduction)), true
	}
	return withBanner(fmt.Sprintf(
		"Being late **%d time(s)** does not yet result in a leave deduction. "+
			"However, be aware that 3 late arrivals in a month will result in a deduction of half a day of Casual Leave.\n\n"+
			"You currently have **%d late(s)**, so you're **%d late(s) away** from a deduction.",
		count, count, LatesPerDeduction-count)), true
}
