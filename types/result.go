package types

// ResultKind enumerates the terminal outcomes reported to the host.
type ResultKind int

const (
	ResultSuccess ResultKind = iota
	ResultAuthorizationFailed
	ResultFailure
	ResultError
	ResultCancelledByUser
)

func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "success"
	case ResultAuthorizationFailed:
		return "authorizationFailed"
	case ResultFailure:
		return "failure"
	case ResultError:
		return "error"
	case ResultCancelledByUser:
		return "cancelledByUser"
	default:
		return "unknown"
	}
}

// OnPayResult is the single value every payment attempt terminates with.
// Err is set only for ResultError.
type OnPayResult struct {
	Kind ResultKind
	Err  error
}

func PaySuccess() OnPayResult             { return OnPayResult{Kind: ResultSuccess} }
func PayAuthorizationFailed() OnPayResult { return OnPayResult{Kind: ResultAuthorizationFailed} }
func PayFailure() OnPayResult             { return OnPayResult{Kind: ResultFailure} }
func PayCancelledByUser() OnPayResult     { return OnPayResult{Kind: ResultCancelledByUser} }

func PayError(err error) OnPayResult {
	return OnPayResult{Kind: ResultError, Err: err}
}

func (r OnPayResult) String() string {
	if r.Kind == ResultError && r.Err != nil {
		return "error(" + r.Err.Error() + ")"
	}
	return r.Kind.String()
}
