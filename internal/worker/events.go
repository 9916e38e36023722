package worker

// CaseIndexPayload is the message published to the case.index topic after a
// successful generation. The consumer embeds the case and writes it to the
// vector store so future requests can retrieve it as a similar example.
type CaseIndexPayload struct {
	CaseID         string   `json:"case_id"`
	Nationality    string   `json:"nationality"`
	Destination    string   `json:"destination"`
	VisaType       string   `json:"visa_type"`
	TravelPurpose  string   `json:"travel_purpose,omitempty"`
	Content        string   `json:"content"`
	FieldsIncluded []string `json:"fields_included,omitempty"`

	CorrelationID string `json:"correlation_id"`
}
