package domain

// Party is a participant as listed in a court registry search hit.
type Party struct {
	INN  FlexString `json:"inn"`
	Name string     `json:"name"`
}

// SearchHit is one case returned by the court registry search.
type SearchHit struct {
	CaseID      string  `json:"caseId"`
	Plaintiffs  []Party `json:"plaintiff"`
	Respondents []Party `json:"respondent"`
}

// Participant is a party as listed in a case detail record.
type Participant struct {
	INN  FlexString `json:"INN"`
	Name string     `json:"Name"`
}

// Participants groups the sides of a case. Some responses list the debtor
// under Defendants instead of Respondents.
type Participants struct {
	Plaintiffs  []Participant `json:"Plaintiffs"`
	Respondents []Participant `json:"Respondents"`
	Defendants  []Participant `json:"Defendants,omitempty"`
}

// Accused returns respondents and defendants together.
func (p Participants) Accused() []Participant {
	out := make([]Participant, 0, len(p.Respondents)+len(p.Defendants))
	out = append(out, p.Respondents...)
	return append(out, p.Defendants...)
}

// InstanceEvent is one docket entry of a case instance.
type InstanceEvent struct {
	EventTypeName string       `json:"EventTypeName"`
	ContentTypes  []FlexString `json:"ContentTypes"`
	File          string       `json:"File"`
	Date          string       `json:"Date"`
}

// CaseInstance is one court instance of a case.
type CaseInstance struct {
	InstanceEvents []InstanceEvent `json:"InstanceEvents"`
}

// CaseInfo carries the case header.
type CaseInfo struct {
	CaseID string `json:"CaseId"`
}

// CaseDetail is the payload of a case detail lookup.
type CaseDetail struct {
	Participants  Participants   `json:"Participants"`
	CaseInfo      CaseInfo       `json:"CaseInfo"`
	CaseInstances []CaseInstance `json:"CaseInstances"`
}

// Document is a decision file found in a case.
type Document struct {
	Date string
	File string
}
