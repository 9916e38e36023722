package config

const (
	// TopicCaseIndex is the NSQ topic for indexing completed generation
	// cases into the similarity index.
	TopicCaseIndex = "case.index"
)
