package dto

// PlacementRunRequest triggers a placement pass for a term.
type PlacementRunRequest struct {
	TermID string `json:"termId" validate:"required"`
	// MaxUnitsPerStudent caps seats per student; zero disables the cap.
	MaxUnitsPerStudent int `json:"maxUnitsPerStudent" validate:"omitempty,min=1"`
}

// PlacementResponse is the outcome for one request.
type PlacementResponse struct {
	RequestID        string `json:"requestId"`
	StudentID        string `json:"studentId"`
	CourseID         string `json:"courseId"`
	UnitID           string `json:"unitId,omitempty"`
	Status           string `json:"status"`
	WaitlistPosition int    `json:"waitlistPosition,omitempty"`
	BypassReason     string `json:"bypassReason,omitempty"`
}

// PlacementSummaryResponse aggregates one placement pass.
type PlacementSummaryResponse struct {
	TermID     string              `json:"termId"`
	Requests   int                 `json:"requests"`
	Enrolled   int                 `json:"enrolled"`
	Waitlisted int                 `json:"waitlisted"`
	Bypassed   int                 `json:"bypassed"`
	Denied     int                 `json:"denied"`
	Placements []PlacementResponse `json:"placements"`
}

// WaitlistEntryResponse is one student's waitlist position.
type WaitlistEntryResponse struct {
	ID        string `json:"id"`
	UnitID    string `json:"unitId"`
	StudentID string `json:"studentId"`
	Position  int    `json:"position"`
	Status    string `json:"status"`
}
