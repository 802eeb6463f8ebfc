package domain

// ExamplePlan is the plan offered to first-time users.
func ExamplePlan() Plan {
	return Plan{
		Name: "🏰 Weekend in Prague",
		Stops: []Stop{
			{
				Name:     "Prague - Old Town",
				Lat:      Float(50.0875),
				Lng:      Float(14.4214),
				DateFrom: "2025-03-01",
				DateTo:   "2025-03-02",
				Notes:    "Astronomical clock, **Charles Bridge** at sunrise.",
			},
			{
				Name:   "Karlštejn",
				Lat:    Float(49.9394),
				Lng:    Float(14.1883),
				DateTo: "2025-03-02",
				Notes:  "Day trip by train from Praha hlavní nádraží.",
			},
			{
				Name:     "Prague - Airport",
				Lat:      Float(50.1008),
				Lng:      Float(14.26),
				DateFrom: "2025-03-02",
				DateTo:   "2025-03-03",
			},
		},
	}
}
