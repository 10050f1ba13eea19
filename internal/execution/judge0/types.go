package judge0

// Wire types for the judge service REST API.

type submitRequest struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
	Stdin      string `json:"stdin,omitempty"`
}

type submitResponse struct {
	Token string `json:"token"`
}

type wireStatus struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type resultResponse struct {
	Token         string     `json:"token"`
	Status        wireStatus `json:"status"`
	Stdout        *string    `json:"stdout"`
	Stderr        *string    `json:"stderr"`
	CompileOutput *string    `json:"compile_output"`
	Message       *string    `json:"message"`
	Time          *string    `json:"time"`   // CPU time in seconds, e.g. "0.002"
	Memory        *int64     `json:"memory"` // resident memory in KB
}
