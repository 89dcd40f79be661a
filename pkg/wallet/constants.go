package wallet

const (
	operationRegister     = "register"
	operationRecharge     = "recharge"
	operationSessionStart = "session_start"
	operationSessionExit  = "session_exit"
	operationSweepOverdue = "sweep_overdue"

	operationStatusOK    = "ok"
	operationStatusError = "error"
)
