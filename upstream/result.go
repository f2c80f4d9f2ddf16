package upstream

import "net/http"

// Kind classifica falhas de transporte.
type Kind int

const (
	KindUnreachable Kind = iota + 1
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Failure é o resultado de um forward que não recebeu resposta.
// Message é para log; nunca vai para o cliente.
type Failure struct {
	Kind    Kind
	Message string
}

func (f *Failure) Error() string {
	return "upstream " + f.Kind.String() + ": " + f.Message
}

// Response é qualquer resposta recebida do upstream, inclusive 4xx/5xx.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Result tem exatamente um dos dois campos preenchido.
type Result struct {
	Response *Response
	Failure  *Failure
}

func Success(resp Response) Result {
	return Result{Response: &resp}
}

func Fail(kind Kind, msg string) Result {
	return Result{Failure: &Failure{Kind: kind, Message: msg}}
}

func (r Result) OK() bool { return r.Response != nil }
