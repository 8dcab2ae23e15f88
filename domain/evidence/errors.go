package evidence

import "errors"

// ErrUnavailable indicates the retrieval backend failed outright, as
// opposed to returning zero results. It surfaces as a fatal run failure.
var ErrUnavailable = errors.New("retriever unavailable")
