package catalog

// Employee is one entry of the employee directory.
type Employee struct {
	Name      string `json:"name"`
	Warehouse string `json:"warehouse"`
}

// ErrorTemplate is one entry of the known-error catalog. First-site lines
// classify through IssueType/IssueSubType, second-site lines through
// FirstColumn/SecondColumn.
type ErrorTemplate struct {
	Title              string `json:"title"`
	IssueType          string `json:"issueType"`
	IssueSubType       string `json:"issueSubType"`
	FirstColumn        string `json:"firstColumn"`
	SecondColumn       string `json:"secondColumn"`
	RecoveryTitle      string `json:"recoveryTitle"`
	SolvingTimeMinutes int    `json:"solvingTimeMinutes"`
	EquipmentType      string `json:"equipmentType"`
	DeviceHint         string `json:"deviceHint,omitempty"`
}

// Robot is one entry of the fleet snapshot.
type Robot struct {
	Number    string `json:"robotNumber"`
	Type      string `json:"robotType"`
	Warehouse string `json:"warehouse"`
}
