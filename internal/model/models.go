package model

// All lists every persisted model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&Hostel{},
		&Room{},
		&Bed{},
		&Application{},
		&WaitlistEntry{},
		&Allocation{},
		&BedHistoryRecord{},
		&PushSubscription{},
	}
}
