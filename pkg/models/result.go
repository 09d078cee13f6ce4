package models

// ResultStatus is the outcome of a single analysis
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusFailure ResultStatus = "failure"
)

// Result is what a session returns for one analysis.
// Detail is set on success, Reason on failure.
type Result struct {
	Status ResultStatus `json:"status"`
	Detail *Detail      `json:"detail,omitempty"`
	Reason string       `json:"reason,omitempty"`
}

// Success wraps a detail into a successful result
func Success(detail *Detail) *Result {
	return &Result{Status: StatusSuccess, Detail: detail}
}

// Failure builds a failed result with the given reason
func Failure(reason string) *Result {
	return &Result{Status: StatusFailure, Reason: reason}
}

// OK reports whether the result is a success
func (r *Result) OK() bool {
	return r != nil && r.Status == StatusSuccess
}

// Detail is the measurement payload collected from one page load
type Detail struct {
	Requests        []Request        `json:"requests"`
	BlockedRequests []BlockedRequest `json:"blockedRequests,omitempty"`
	Frames          []Frame          `json:"frames"`
}

type Request struct {
	RequestID         string             `json:"requestId"`
	FrameID           string             `json:"frameId"`
	Method            string             `json:"method"`
	URL               string             `json:"url"`
	Body              *RequestBody       `json:"body"`
	ResourceType      string             `json:"resourceType"`
	URLClassification *URLClassification `json:"urlClassification,omitempty"`
}

type RequestBody struct {
	FormData []KeyValue `json:"formData,omitempty"`
	Raw      string     `json:"raw,omitempty"`
}

type URLClassification struct {
	FirstParty []string `json:"firstParty"`
	ThirdParty []string `json:"thirdParty"`
}

// BlockedRequest is a request the browser refused, with the NS_ERROR_* code
type BlockedRequest struct {
	Request Request `json:"request"`
	Error   string  `json:"error"`
}

type Frame struct {
	FrameID      string        `json:"frameId"`
	URL          string        `json:"url"`
	BaseURL      string        `json:"baseUrl"`
	Cookies      []KeyValue    `json:"cookies"`
	StorageItems []KeyValue    `json:"storageItems"`
	TaintReports []TaintReport `json:"taintReports,omitempty"`
}

type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// TaintReport is a taint flow reported by foxhound
type TaintReport struct {
	Loc           string         `json:"loc"`
	ParentLoc     string         `json:"parentloc"`
	Referrer      string         `json:"referrer"`
	ScriptURL     string         `json:"scriptUrl"`
	Sink          string         `json:"sink"`
	Str           string         `json:"str"`
	Subframe      bool           `json:"subframe"`
	Taint         []TaintFlow    `json:"taint"`
	SinkOperation TaintOperation `json:"sinkOperation"`
}

type TaintFlow struct {
	Begin     int            `json:"begin"`
	End       int            `json:"end"`
	Operation TaintOperation `json:"operation"`
}

type TaintOperation struct {
	Arguments []string      `json:"arguments"`
	Builtin   bool          `json:"builtin"`
	Location  TaintLocation `json:"location"`
	Operation string        `json:"operation"`
	Source    bool          `json:"source"`
}

type TaintLocation struct {
	Filename   string `json:"filename"`
	Function   string `json:"function"`
	Line       int    `json:"line"`
	Pos        int    `json:"pos"`
	ScriptHash string `json:"scripthash"`
	ScriptLine int    `json:"scriptline"`
}
