package diagnostics

// Message formats shared by the semantic check and evaluation walks.
const (
	MsgAlreadyDeclared  = "symbol '%s' already declared as %s in the current scope"
	MsgNotDeclared      = "variable '%s' is not declared in an available scope"
	MsgWrongKind        = "identifier '%s' is declared as %s, not as %s"
	MsgNotBoolean       = "Condition is not a boolean expression"
	MsgAssignTarget     = "Values can only be assigned to variables"
	MsgLoopInitializer  = "Loop initializer must assign a value to a variable"
	MsgLoopBound        = "Loop bounds must be integer expressions"
	MsgIterationBudget  = "iteration budget exceeded (max %d)"
	MsgExecutionStopped = "execution cancelled: %v"
)
