package portal

import (
	"errors"
	"fmt"
)

const AppAll = "all"

var (
	ErrUnknownPeriod = errors.New("unknown period")
	ErrUnknownApp    = errors.New("unknown application")
)

type Option struct {
	Key   string `yaml:"key" json:"key"`
	Label string `yaml:"label" json:"label"`
}

type Dataset struct {
	Label           string    `yaml:"label" json:"label,omitempty"`
	Data            []float64 `yaml:"data" json:"data"`
	BackgroundColor []string  `yaml:"backgroundColor" json:"backgroundColor,omitempty"`
	BorderColor     []string  `yaml:"borderColor" json:"borderColor,omitempty"`
	BorderWidth     int       `yaml:"borderWidth" json:"borderWidth,omitempty"`
	Tension         float64   `yaml:"tension" json:"tension,omitempty"`
	Fill            bool      `yaml:"fill" json:"fill,omitempty"`
}

// Chart is the chart.js shaped data of a single chart.
type Chart struct {
	Type     string    `yaml:"type" json:"type"`
	Title    string    `yaml:"title" json:"title"`
	PerApp   bool      `yaml:"perApp" json:"-"`
	Labels   []string  `yaml:"labels" json:"labels"`
	Datasets []Dataset `yaml:"datasets" json:"datasets"`
}

// only keeps the data point with the given label, colors included.
func (c Chart) only(label string) Chart {
	idx := -1
	for i, l := range c.Labels {
		if l == label {
			idx = i
			break
		}
	}

	narrowed := Chart{
		Type:     c.Type,
		Title:    c.Title,
		PerApp:   c.PerApp,
		Labels:   []string{},
		Datasets: make([]Dataset, 0, len(c.Datasets)),
	}
	if idx >= 0 {
		narrowed.Labels = []string{label}
	}

	pick := func(values []string) []string {
		if len(values) != len(c.Labels) {
			return values
		}
		if idx < 0 {
			return []string{}
		}
		return []string{values[idx]}
	}
	for _, ds := range c.Datasets {
		nds := ds
		nds.Data = []float64{}
		if idx >= 0 && idx < len(ds.Data) {
			nds.Data = []float64{ds.Data[idx]}
		}
		nds.BackgroundColor = pick(ds.BackgroundColor)
		nds.BorderColor = pick(ds.BorderColor)
		narrowed.Datasets = append(narrowed.Datasets, nds)
	}
	return narrowed
}

type KPI struct {
	Name   string `yaml:"name" json:"name"`
	Value  string `yaml:"value" json:"value"`
	Change string `yaml:"change" json:"change"`
	Trend  string `yaml:"trend" json:"trend"`
}

type Performer struct {
	App    string `yaml:"app" json:"app"`
	Metric string `yaml:"metric" json:"metric"`
	Value  string `yaml:"value" json:"value"`
	Growth string `yaml:"growth" json:"growth"`
}

type Analytics struct {
	Periods       []Option         `yaml:"periods"`
	DefaultPeriod string           `yaml:"defaultPeriod"`
	Apps          []Option         `yaml:"apps"`
	KPIs          []KPI            `yaml:"kpis"`
	TopPerformers []Performer      `yaml:"topPerformers"`
	Charts        map[string]Chart `yaml:"charts"`
}

type AnalyticsView struct {
	Period        Option           `json:"period"`
	App           Option           `json:"app"`
	Periods       []Option         `json:"periods"`
	Apps          []Option         `json:"apps"`
	KPIs          []KPI            `json:"kpis"`
	TopPerformers []Performer      `json:"topPerformers"`
	Charts        map[string]Chart `json:"charts"`
}

func (a *Analytics) validate() error {
	if _, ok := findOption(a.Periods, a.DefaultPeriod); !ok {
		return fmt.Errorf("default %w [%s]", ErrUnknownPeriod, a.DefaultPeriod)
	}
	if _, ok := findOption(a.Apps, AppAll); !ok {
		return fmt.Errorf("app filter [%s] missing", AppAll)
	}
	for name, chart := range a.Charts {
		for _, ds := range chart.Datasets {
			if len(ds.Data) != len(chart.Labels) {
				return fmt.Errorf("chart [%s]: %d labels, dataset [%s] has %d points",
					name, len(chart.Labels), ds.Label, len(ds.Data))
			}
		}
	}
	return nil
}

// Select builds the analytics page for a period and app filter. Empty
// values fall back to the defaults. A specific app narrows the per app
// charts and the top performers to that app.
func (a *Analytics) Select(periodKey, appKey string) (*AnalyticsView, error) {
	if periodKey == "" {
		periodKey = a.DefaultPeriod
	}
	if appKey == "" {
		appKey = AppAll
	}

	period, ok := findOption(a.Periods, periodKey)
	if !ok {
		return nil, fmt.Errorf("%w [%s]", ErrUnknownPeriod, periodKey)
	}
	app, ok := findOption(a.Apps, appKey)
	if !ok {
		return nil, fmt.Errorf("%w [%s]", ErrUnknownApp, appKey)
	}

	view := &AnalyticsView{
		Period:        period,
		App:           app,
		Periods:       a.Periods,
		Apps:          a.Apps,
		KPIs:          a.KPIs,
		TopPerformers: a.TopPerformers,
		Charts:        make(map[string]Chart, len(a.Charts)),
	}

	if app.Key == AppAll {
		for name, chart := range a.Charts {
			view.Charts[name] = chart
		}
		return view, nil
	}

	for name, chart := range a.Charts {
		if chart.PerApp {
			chart = chart.only(app.Label)
		}
		view.Charts[name] = chart
	}
	view.TopPerformers = make([]Performer, 0, 1)
	for _, p := range a.TopPerformers {
		if p.App == app.Label {
			view.TopPerformers = append(view.TopPerformers, p)
		}
	}

	return view, nil
}

func findOption(options []Option, key string) (Option, bool) {
	for _, o := range options {
		if o.Key == key {
			return o, true
		}
	}
	return Option{}, false
}
