package chp

// Visitor is the dispatch surface every AST node's Accept forwards
// to. This is the repository's mechanism for polymorphism without
// inheritance: rather than a class hierarchy, each concrete node type
// is a leaf of one tagged union (Expr, Stmt, Decl, TypeNode, PRNode)
// and Accept performs a single double-dispatch hop into whichever
// concern (printing, semantic analysis, ...) the caller's Visitor
// implements.
//
// Implementations embed BaseVisitor to pick up no-op defaults for
// variants they don't care about, matching the "missing handlers have
// well-defined defaults" rule: a visitor that only cares about
// expressions doesn't have to implement every statement and
// declaration case.
type Visitor interface {
	VisitLiteralExpr(*LiteralExpr) error
	VisitNameExpr(*NameExpr) error
	VisitBinaryExpr(*BinaryExpr) error
	VisitUnaryExpr(*UnaryExpr) error
	VisitIndexExpr(*IndexExpr) error
	VisitSubrangeExpr(*SubrangeExpr) error
	VisitFieldExpr(*FieldExpr) error
	VisitCallExpr(*CallExpr) error
	VisitArrayConstructorExpr(*ArrayConstructorExpr) error
	VisitRecordConstructorExpr(*RecordConstructorExpr) error
	VisitTypeValueExpr(*TypeValueExpr) error
	VisitProbeValueExpr(*ProbeValueExpr) error
	VisitReplicatorExpr(*ReplicatorExpr) error

	VisitSkipStmt(*SkipStmt) error
	VisitAssignStmt(*AssignStmt) error
	VisitBoolSetStmt(*BoolSetStmt) error
	VisitCommStmt(*CommStmt) error
	VisitGuardedCmd(*GuardedCmd) error
	VisitSelectionStmt(*SelectionStmt) error
	VisitLoopStmt(*LoopStmt) error
	VisitCompoundStmt(*CompoundStmt) error
	VisitParStmt(*ParStmt) error
	VisitConnectStmt(*ConnectStmt) error
	VisitProcCallStmt(*ProcCallStmt) error
	VisitReplicatorStmt(*ReplicatorStmt) error
	VisitEndStmt(*EndStmt) error

	VisitVarDecl(*VarDecl) error
	VisitParamDecl(*ParamDecl) error
	VisitMetaParamDecl(*MetaParamDecl) error
	VisitFieldDecl(*FieldDecl) error
	VisitWireDecl(*WireDecl) error
	VisitInstanceDecl(*InstanceDecl) error
	VisitTypeDecl(*TypeDecl) error
	VisitConstDecl(*ConstDecl) error
	VisitFieldDefDecl(*FieldDefDecl) error
	VisitPropertyDecl(*PropertyDecl) error
	VisitRequiresDecl(*RequiresDecl) error
	VisitProcessDecl(*ProcessDecl) error
	VisitRoutineDecl(*RoutineDecl) error
	VisitModuleDecl(*ModuleDecl) error

	VisitIntRangeTypeNode(*IntRangeTypeNode) error
	VisitEnumTypeNode(*EnumTypeNode) error
	VisitArrayTypeNode(*ArrayTypeNode) error
	VisitRecordTypeNode(*RecordTypeNode) error
	VisitUnionTypeNode(*UnionTypeNode) error
	VisitNamedTypeNode(*NamedTypeNode) error
	VisitGenericTypeNode(*GenericTypeNode) error
	VisitWiredTypeNode(*WiredTypeNode) error
	VisitDummyTypeNode(*DummyTypeNode) error

	VisitTransitionNode(*TransitionNode) error
	VisitRuleNode(*RuleNode) error
	VisitDelayHoldNode(*DelayHoldNode) error
	VisitPRReplicator(*PRReplicator) error
}

// BaseVisitor implements every Visitor method as a no-op returning
// nil. Embed it in a concrete visitor and override only the cases
// that matter; this mirrors the source's "dispatch table with
// well-defined defaults" discipline using Go's embedding instead of
// an enum-indexed function-pointer array.
type BaseVisitor struct{}

func (BaseVisitor) VisitLiteralExpr(*LiteralExpr) error                       { return nil }
func (BaseVisitor) VisitNameExpr(*NameExpr) error                             { return nil }
func (BaseVisitor) VisitBinaryExpr(*BinaryExpr) error                         { return nil }
func (BaseVisitor) VisitUnaryExpr(*UnaryExpr) error                           { return nil }
func (BaseVisitor) VisitIndexExpr(*IndexExpr) error                          { return nil }
func (BaseVisitor) VisitSubrangeExpr(*SubrangeExpr) error                    { return nil }
func (BaseVisitor) VisitFieldExpr(*FieldExpr) error                          { return nil }
func (BaseVisitor) VisitCallExpr(*CallExpr) error                            { return nil }
func (BaseVisitor) VisitArrayConstructorExpr(*ArrayConstructorExpr) error    { return nil }
func (BaseVisitor) VisitRecordConstructorExpr(*RecordConstructorExpr) error  { return nil }
func (BaseVisitor) VisitTypeValueExpr(*TypeValueExpr) error                  { return nil }
func (BaseVisitor) VisitProbeValueExpr(*ProbeValueExpr) error                { return nil }
func (BaseVisitor) VisitReplicatorExpr(*ReplicatorExpr) error                { return nil }

func (BaseVisitor) VisitSkipStmt(*SkipStmt) error             { return nil }
func (BaseVisitor) VisitAssignStmt(*AssignStmt) error         { return nil }
func (BaseVisitor) VisitBoolSetStmt(*BoolSetStmt) error       { return nil }
func (BaseVisitor) VisitCommStmt(*CommStmt) error             { return nil }
func (BaseVisitor) VisitGuardedCmd(*GuardedCmd) error         { return nil }
func (BaseVisitor) VisitSelectionStmt(*SelectionStmt) error   { return nil }
func (BaseVisitor) VisitLoopStmt(*LoopStmt) error             { return nil }
func (BaseVisitor) VisitCompoundStmt(*CompoundStmt) error     { return nil }
func (BaseVisitor) VisitParStmt(*ParStmt) error               { return nil }
func (BaseVisitor) VisitConnectStmt(*ConnectStmt) error       { return nil }
func (BaseVisitor) VisitProcCallStmt(*ProcCallStmt) error     { return nil }
func (BaseVisitor) VisitReplicatorStmt(*ReplicatorStmt) error { return nil }
func (BaseVisitor) VisitEndStmt(*EndStmt) error               { return nil }

func (BaseVisitor) VisitVarDecl(*VarDecl) error             { return nil }
func (BaseVisitor) VisitParamDecl(*ParamDecl) error         { return nil }
func (BaseVisitor) VisitMetaParamDecl(*MetaParamDecl) error { return nil }
func (BaseVisitor) VisitFieldDecl(*FieldDecl) error         { return nil }
func (BaseVisitor) VisitWireDecl(*WireDecl) error           { return nil }
func (BaseVisitor) VisitInstanceDecl(*InstanceDecl) error   { return nil }
func (BaseVisitor) VisitTypeDecl(*TypeDecl) error           { return nil }
func (BaseVisitor) VisitConstDecl(*ConstDecl) error         { return nil }
func (BaseVisitor) VisitFieldDefDecl(*FieldDefDecl) error   { return nil }
func (BaseVisitor) VisitPropertyDecl(*PropertyDecl) error   { return nil }
func (BaseVisitor) VisitRequiresDecl(*RequiresDecl) error   { return nil }
func (BaseVisitor) VisitProcessDecl(*ProcessDecl) error     { return nil }
func (BaseVisitor) VisitRoutineDecl(*RoutineDecl) error     { return nil }
func (BaseVisitor) VisitModuleDecl(*ModuleDecl) error       { return nil }

func (BaseVisitor) VisitIntRangeTypeNode(*IntRangeTypeNode) error { return nil }
func (BaseVisitor) VisitEnumTypeNode(*EnumTypeNode) error         { return nil }
func (BaseVisitor) VisitArrayTypeNode(*ArrayTypeNode) error       { return nil }
func (BaseVisitor) VisitRecordTypeNode(*RecordTypeNode) error     { return nil }
func (BaseVisitor) VisitUnionTypeNode(*UnionTypeNode) error       { return nil }
func (BaseVisitor) VisitNamedTypeNode(*NamedTypeNode) error       { return nil }
func (BaseVisitor) VisitGenericTypeNode(*GenericTypeNode) error   { return nil }
func (BaseVisitor) VisitWiredTypeNode(*WiredTypeNode) error       { return nil }
func (BaseVisitor) VisitDummyTypeNode(*DummyTypeNode) error       { return nil }

func (BaseVisitor) VisitTransitionNode(*TransitionNode) error { return nil }
func (BaseVisitor) VisitRuleNode(*RuleNode) error             { return nil }
func (BaseVisitor) VisitDelayHoldNode(*DelayHoldNode) error   { return nil }
func (BaseVisitor) VisitPRReplicator(*PRReplicator) error     { return nil }
