package utils

import "errors"

type MultilingualMessage struct {
	EN string `json:"en"`
	RU string `json:"ru"`
	UZ string `json:"uz"`
}

type RPCError struct {
	Code    int                 `json:"code"`
	Message MultilingualMessage `json:"message"`
	Data    interface{}         `json:"data,omitempty"`
}

func (e RPCError) Error() string {
	return e.Message.EN
}

// AsRPCError reports whether err carries a protocol error.
func AsRPCError(err error) (RPCError, bool) {
	var rpcErr RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr, true
	}
	return RPCError{}, false
}

var (
	ErrParse = RPCError{Code: -32700, Message: MultilingualMessage{
		EN: "Parse error",
		RU: "Ошибка разбора запроса",
		UZ: "So'rovni o'qishda xatolik"},
	}

	ErrInvalidParams = RPCError{Code: -32600, Message: MultilingualMessage{
		EN: "Invalid params",
		RU: "Неверные параметры",
		UZ: "Parametrlar noto'g'ri"},
	}

	ErrMethodNotFound = RPCError{Code: -32601, Message: MultilingualMessage{
		EN: "Method not found",
		RU: "Метод не найден",
		UZ: "Metod topilmadi"},
	}

	ErrInsufficientPrivilege = RPCError{Code: -32504, Message: MultilingualMessage{
		EN: "Insufficient privilege to perform this method",
		RU: "Недостаточно привилегий для выполнения метода",
		UZ: "Metodni bajarish uchun huquq yetarli emas"},
	}

	ErrInternalServer = RPCError{Code: -32400, Message: MultilingualMessage{
		EN: "Internal server error",
		RU: "Внутренняя ошибка сервера",
		UZ: "Ichki server xatosi"},
	}

	ErrChargeNotFound = RPCError{Code: -31050, Message: MultilingualMessage{
		EN: "Registration not found",
		RU: "Регистрация не найдена",
		UZ: "Ro'yxatdan o'tish topilmadi"},
		Data: "charge_id",
	}

	ErrInvalidAmount = RPCError{Code: -31001, Message: MultilingualMessage{
		EN: "Invalid amount",
		RU: "Неверная сумма",
		UZ: "Summa noto'g'ri"},
		Data: "amount",
	}

	ErrTransactionNotFound = RPCError{Code: -31003, Message: MultilingualMessage{
		EN: "Transaction not found",
		RU: "Транзакция не найдена",
		UZ: "Tranzaksiya topilmadi"},
	}

	ErrCouldNotPerform = RPCError{Code: -31008, Message: MultilingualMessage{
		EN: "Could not perform this operation",
		RU: "Невозможно выполнить операцию",
		UZ: "Ushbu operatsiyani bajarib bo'lmadi"},
	}
)
