package model

// RunResult is the machine-readable outcome of one proving or execution run.
//
// Hashes and digests are 0x-prefixed hex. Error is nil on success.
type RunResult struct {
	State string `json:"state"`
	Mode  string `json:"mode"`

	L1Head       string `json:"l1Head,omitempty"`
	L2OutputRoot string `json:"l2OutputRoot,omitempty"`
	L2Claim      string `json:"l2Claim,omitempty"`
	L2ClaimBlock uint64 `json:"l2ClaimBlock,omitempty"`
	ChainID      uint64 `json:"chainId,omitempty"`

	ProgramID    string `json:"programId,omitempty"`
	StoreEntries int    `json:"storeEntries"`
	StoreBytes   int    `json:"storeBytes"`
	InputBytes   int    `json:"inputBytes"`
	InputDigest  string `json:"inputDigest,omitempty"`
	Cycles       uint64 `json:"cycles"`
	PublicValues string `json:"publicValues,omitempty"`
	ReceiptCID   string `json:"receiptCid,omitempty"`

	Error *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo is the JSON projection of an Error.
type ErrorInfo struct {
	Kind      Kind   `json:"kind,omitempty"`
	Code      Code   `json:"code,omitempty"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// NewErrorInfo projects err for JSON output. Unstructured errors keep only
// their message.
func NewErrorInfo(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	return &ErrorInfo{
		Kind:      KindOf(err),
		Code:      CodeOf(err),
		Message:   err.Error(),
		Retryable: Retryable(err),
	}
}
