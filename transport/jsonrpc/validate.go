package jsonrpc

import "github.com/go-playground/validator/v10"

// paramsValidate is the shared validator instance for RPC params structs,
// matching the teacher's one-validator-per-package convention
// (services/orchestrator/datatypes/chat.go's chatValidate).
var paramsValidate = validator.New()

// validatable is implemented by any params type with struct-tag validation
// rules to enforce after JSON decoding. decodeParams calls it automatically
// when present.
type validatable interface {
	Validate() error
}
