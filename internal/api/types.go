package api

// Response is the envelope of every successful JSON response
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SentenceResponse is the public view of a sentence
type SentenceResponse struct {
	Content   string `json:"content"`
	Situation string `json:"situation"`
	VoiceURL  string `json:"voice_url"`
}

// PronunciationResultResponse is the short form of a stored result
type PronunciationResultResponse struct {
	Accuracy float64 `json:"accuracy"`
	Feedback string  `json:"feedback"`
	Content  string  `json:"content"`
}
