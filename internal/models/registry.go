package models

// All returns every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{
		&UomCategory{},
		&Uom{},
		&ProductProduct{},
		&OperationType{},
		&WorkCenterCategory{},
		&WorkCenter{},
		&ProductionBom{},
		&BomInput{},
		&BomOutput{},
		&ProductionRoute{},
		&RouteOperation{},
		&Process{},
		&ProcessStep{},
		&ProductBom{},
		&StockLocation{},
		&Production{},
		&ProductionOperation{},
		&StockMove{},
	}
}
