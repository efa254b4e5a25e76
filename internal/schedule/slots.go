// Package schedule computes free appointment slots for a doctor's day.
package schedule

// TimeSlot is a fixed 30-minute interval, both bounds as "HH:MM".
type TimeSlot struct {
	StartTime string `bson:"startTime" json:"startTime"`
	EndTime   string `bson:"endTime" json:"endTime"`
}

// Catalog returns the bookable slots of a working day: 09:00-12:00 and
// 13:00-16:00 in 30-minute steps, with the lunch hour excluded. The catalog
// is the same for every doctor; per-doctor working hours are not modelled.
func Catalog() []TimeSlot {
	return []TimeSlot{
		{StartTime: "09:00", EndTime: "09:30"},
		{StartTime: "09:30", EndTime: "10:00"},
		{StartTime: "10:00", EndTime: "10:30"},
		{StartTime: "10:30", EndTime: "11:00"},
		{StartTime: "11:00", EndTime: "11:30"},
		{StartTime: "11:30", EndTime: "12:00"},
		{StartTime: "13:00", EndTime: "13:30"},
		{StartTime: "13:30", EndTime: "14:00"},
		{StartTime: "14:00", EndTime: "14:30"},
		{StartTime: "14:30", EndTime: "15:00"},
		{StartTime: "15:00", EndTime: "15:30"},
		{StartTime: "15:30", EndTime: "16:00"},
	}
}

// AvailableSlots filters catalog down to the slots not present in booked,
// preserving catalog order. A booking matches only on an exact
// (StartTime, EndTime) pair; a booking with non-catalog-aligned times blocks
// nothing.
func AvailableSlots(catalog, booked []TimeSlot) []TimeSlot {
	taken := make(map[TimeSlot]struct{}, len(booked))
	for _, b := range booked {
		taken[b] = struct{}{}
	}
	available := make([]TimeSlot, 0, len(catalog))
	for _, slot := range catalog {
		if _, ok := taken[slot]; !ok {
			available = append(available, slot)
		}
	}
	return available
}
