package pipeline

import (
	"fmt"
	"net/http"
)

// Response is the run outcome in the shape the invocation wrapper emits:
// a status code plus a success/processed/results body.
type Response struct {
	StatusCode int          `json:"statusCode"`
	Body       ResponseBody `json:"body"`
}

// ResponseBody is the payload part of Response.
type ResponseBody struct {
	Success   bool         `json:"success"`
	Processed int          `json:"processed"`
	Results   []BlogResult `json:"results"`
}

// Response converts the summary into the wire shape. The run counts as
// successful when no blog failed outright; queued retries do not fail a run.
func (s *Summary) Response() Response {
	success := s.Failed == 0
	code := http.StatusOK
	if !success {
		code = http.StatusInternalServerError
	}
	return Response{
		StatusCode: code,
		Body: ResponseBody{
			Success:   success,
			Processed: s.Processed,
			Results:   s.Results,
		},
	}
}

func runSummaryMessage(s *Summary) string {
	return fmt.Sprintf("%d/%d succeeded (%d queued, %d failed)", s.Succeeded, s.Processed, s.Queued, s.Failed)
}
