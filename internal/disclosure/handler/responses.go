package handler

// VerifyResponse reports a verification outcome. Reason holds the error code
// of a rejected proof.
type VerifyResponse struct {
	Valid          bool   `json:"valid"`
	ContentChecked bool   `json:"contentChecked"`
	Reason         string `json:"reason,omitempty"`
}
