package chart

const (
	NameLuminosity = "luminosity"
	NameIO         = "io"
)

// Config is the static presentation of a bar chart. Field names follow what
// the dashboard page hands to Chart.js.
type Config struct {
	Name         string   `json:"name"`
	Title        string   `json:"title"`
	DatasetLabel string   `json:"datasetLabel"`
	Labels       []string `json:"labels"`
	Background   []string `json:"backgroundColor"`
	Border       []string `json:"borderColor"`
	BorderWidth  int      `json:"borderWidth"`
	AxisTitle    string   `json:"axisTitle"`
	Min          int      `json:"min"`
	Max          int      `json:"max"`
	Step         int      `json:"stepSize"`
}

// LuminosityConfig covers raw RGB sensor values, 0..255.
func LuminosityConfig() Config {
	return Config{
		Name:         NameLuminosity,
		Title:        "Luminosity Sensor Data",
		DatasetLabel: "Luminosity Values",
		Labels:       []string{"Red", "Green", "Blue", "Clear"},
		Background: []string{
			"rgba(255, 99, 132, 0.7)",
			"rgba(75, 192, 192, 0.7)",
			"rgba(54, 162, 235, 0.7)",
			"rgba(201, 203, 207, 0.7)",
		},
		Border: []string{
			"rgb(255, 99, 132)",
			"rgb(75, 192, 192)",
			"rgb(54, 162, 235)",
			"rgb(201, 203, 207)",
		},
		BorderWidth: 2,
		AxisTitle:   "Light Intensity",
		Min:         0,
		Max:         255,
		Step:        51,
	}
}

// IOConfig covers entries, exits and current occupancy, 0..30.
func IOConfig() Config {
	return Config{
		Name:         NameIO,
		Title:        "Entradas/Saídas",
		DatasetLabel: "I/O Values",
		Labels:       []string{"Entrada", "Saída", "Pessoas no local"},
		Background: []string{
			"rgba(75, 192, 192, 0.7)",
			"rgba(255, 159, 64, 0.7)",
			"rgba(153, 102, 255, 0.7)",
		},
		Border: []string{
			"rgb(75, 192, 192)",
			"rgb(255, 159, 64)",
			"rgb(153, 102, 255)",
		},
		BorderWidth: 2,
		AxisTitle:   "Quantidade",
		Min:         0,
		Max:         30,
		Step:        5,
	}
}
