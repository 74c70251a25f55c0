package guesswhat

const (
	// GCPProject is the project this runs in.
	GCPProject = "guesswhat-prod"

	// Service is the name of this service.
	Service = "guesswhat"
)
