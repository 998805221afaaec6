package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/weissv/olymp-pay/internal/service"
	"github.com/weissv/olymp-pay/pkg/utils"
)

// Method is a Payme merchant API method name.
type Method string

const (
	MethodCheckPerformTransaction Method = "CheckPerformTransaction"
	MethodCreateTransaction       Method = "CreateTransaction"
	MethodPerformTransaction      Method = "PerformTransaction"
	MethodCancelTransaction       Method = "CancelTransaction"
	MethodCheckTransaction        Method = "CheckTransaction"
	MethodGetStatement            Method = "GetStatement"
	MethodChangePassword          Method = "ChangePassword"
)

// Methods lists every method the endpoint serves.
var Methods = []Method{
	MethodCheckPerformTransaction,
	MethodCreateTransaction,
	MethodPerformTransaction,
	MethodCancelTransaction,
	MethodCheckTransaction,
	MethodGetStatement,
	MethodChangePassword,
}

type methodFunc func(ctx context.Context, params json.RawMessage) (any, error)

// bind decodes and validates params of type P before handing them to call.
func bind[P, R any](validate *validator.Validate, call func(context.Context, P) (R, error)) methodFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var params P
		if err := decodeAndValidate(validate, raw, &params); err != nil {
			return nil, err
		}
		return call(ctx, params)
	}
}

func newMethodTable(svc service.PaymentService, validate *validator.Validate) map[Method]methodFunc {
	table := map[Method]methodFunc{
		MethodCheckPerformTransaction: bind(validate, svc.CheckPerformTransaction),
		MethodCreateTransaction:       bind(validate, svc.CreateTransaction),
		MethodPerformTransaction:      bind(validate, svc.PerformTransaction),
		MethodCancelTransaction:       bind(validate, svc.CancelTransaction),
		MethodCheckTransaction:        bind(validate, svc.CheckTransaction),
		MethodGetStatement:            bind(validate, svc.GetStatement),
		MethodChangePassword:          bind(validate, svc.ChangePassword),
	}
	for _, m := range Methods {
		if _, ok := table[m]; !ok {
			panic(fmt.Sprintf("handler: no implementation for method %s", m))
		}
	}
	return table
}

func decodeAndValidate(validate *validator.Validate, raw json.RawMessage, target any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return utils.ErrInvalidParams
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return utils.ErrInvalidParams
	}
	if err := validate.Struct(target); err != nil {
		return utils.ErrInvalidParams
	}
	return nil
}
