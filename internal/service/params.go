package service

type AccountParams struct {
	ChargeID string `json:"charge_id" validate:"required"`
}

type CheckPerformTransactionParams struct {
	Amount  *int64        `json:"amount" validate:"required"`
	Account AccountParams `json:"account"`
}

type CreateTransactionParams struct {
	ID      string        `json:"id" validate:"required"`
	Time    int64         `json:"time" validate:"required,gt=0"`
	Amount  *int64        `json:"amount" validate:"required"`
	Account AccountParams `json:"account"`
}

type TransactionParams struct {
	ID string `json:"id" validate:"required"`
}

type CancelTransactionParams struct {
	ID     string `json:"id" validate:"required"`
	Reason *int   `json:"reason" validate:"required"`
}

type GetStatementParams struct {
	From *int64 `json:"from" validate:"required,gte=0"`
	To   *int64 `json:"to" validate:"required,gte=0"`
}

type ChangePasswordParams struct {
	Password string `json:"password" validate:"required"`
}

type CheckPerformTransactionResponse struct {
	Allow bool `json:"allow"`
}

type CreateTransactionResponse struct {
	CreateTime  int64  `json:"create_time"`
	Transaction string `json:"transaction"`
	State       int    `json:"state"`
}

type PerformTransactionResponse struct {
	Transaction string `json:"transaction"`
	PerformTime int64  `json:"perform_time"`
	State       int    `json:"state"`
}

type CancelTransactionResponse struct {
	Transaction string `json:"transaction"`
	CancelTime  int64  `json:"cancel_time"`
	State       int    `json:"state"`
}

type CheckTransactionResponse struct {
	CreateTime  int64  `json:"create_time"`
	PerformTime int64  `json:"perform_time"`
	CancelTime  int64  `json:"cancel_time"`
	Transaction string `json:"transaction"`
	State       int    `json:"state"`
	Reason      *int   `json:"reason"`
}

type StatementAccount struct {
	ChargeID string `json:"charge_id"`
}

type StatementTransaction struct {
	ID          string           `json:"id"`
	Time        int64            `json:"time"`
	Amount      int64            `json:"amount"`
	Account     StatementAccount `json:"account"`
	CreateTime  int64            `json:"create_time"`
	PerformTime int64            `json:"perform_time"`
	CancelTime  int64            `json:"cancel_time"`
	Transaction string           `json:"transaction"`
	State       int              `json:"state"`
	Reason      *int             `json:"reason"`
}

type GetStatementResponse struct {
	Transactions []StatementTransaction `json:"transactions"`
}

type ChangePasswordResponse struct {
	Success bool `json:"success"`
}
