package domain

// Warehouse returns the built-in automated-warehouse instance: two robots
// moving shelves of products to a picking station over a small grid with a
// highway row. The constraint order below is the order violations are
// reported in.
func Warehouse() *Domain {
	objects := []ObjectRef{
		{Name: "r1", Kind: KindRobot},
		{Name: "r2", Kind: KindRobot},
		{Name: "s1", Kind: KindShelf},
		{Name: "s2", Kind: KindShelf},
		{Name: "p1", Kind: KindProduct},
		{Name: "p2", Kind: KindProduct},
		{Name: "ps1", Kind: KindPickingStation},
		{Name: "o1", Kind: KindOrder},
	}

	constraints := []ConstraintSpec{
		{
			ID:        "robot_collision",
			Predicate: "robot_collision",
			Mode:      ModeForbid,
			Objects:   []string{"r1", "r2"},
			Rationale: "No two robots may occupy the same cell at the same time.",
		},
		{
			ID:        "robot_swap",
			Predicate: "robot_swap",
			Mode:      ModeForbid,
			Objects:   []string{"r1", "r2"},
			Rationale: "Robots may not exchange positions in a single timestep.",
		},
		{
			ID:        "shelf_overlap",
			Predicate: "shelf_overlap",
			Mode:      ModeForbid,
			Objects:   []string{"s1", "s2"},
			Rationale: "Two shelves may never occupy the same cell, including while carried.",
		},
		{
			ID:        "shelf_on_highway",
			Predicate: "shelf_on_highway",
			Mode:      ModeForbid,
			Objects:   []string{"s1", "s2"},
			Rationale: "No shelf may be on a highway cell at any time, carried or not.",
		},
		{
			ID:        "double_carry",
			Predicate: "double_carry",
			Mode:      ModeForbid,
			Objects:   []string{"r1", "r2", "s1", "s2"},
			Rationale: "A robot carries at most one shelf and a shelf is carried by at most one robot.",
		},
		{
			ID:        "order_unfilled",
			Predicate: "order_unfilled",
			Mode:      ModeForbid,
			Objects:   []string{"o1"},
			Rationale: "Every order line must be satisfied by the final timestep.",
		},
		{
			ID:        "goal_reached",
			Predicate: "goal_met",
			Mode:      ModeRequire,
			Objects:   []string{"o1"},
			Rationale: "The plan must reach a state where all order lines are delivered.",
		},
	}

	d, err := New("warehouse", objects, constraints)
	if err != nil {
		// The built-in instance is validated by tests; a failure here is a
		// programming error.
		panic(err)
	}
	return d
}
