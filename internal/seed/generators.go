package seed

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/meow-stack/factory-sim/internal/stores"
)

var (
	firstNames = []string{"Ava", "Ben", "Chloe", "Dev", "Elena", "Felix", "Grace", "Hiro", "Iris", "Jonah",
		"Kira", "Luis", "Maya", "Noor", "Omar", "Priya", "Quinn", "Rosa", "Sam", "Tariq"}
	lastNames = []string{"Adams", "Baker", "Chen", "Diaz", "Evans", "Fischer", "Garcia", "Hughes", "Ito", "Jensen",
		"Kim", "Lopez", "Moreau", "Nakamura", "Okafor", "Patel", "Reyes", "Singh", "Tanaka", "Walsh"}
	streets = []string{"Main St", "Oak Ave", "Pine Rd", "Maple Dr", "Cedar Ln", "Elm St", "Lake Blvd", "Hill Rd"}
	cities  = []struct{ city, state string }{
		{"Springfield", "IL"}, {"Riverton", "WY"}, {"Fairview", "TX"}, {"Madison", "WI"},
		{"Georgetown", "KY"}, {"Salem", "OR"}, {"Franklin", "TN"}, {"Clinton", "IA"},
	}
)

// GenerateCustomers returns n customers with simple synthetic contact data.
func GenerateCustomers(rng *rand.Rand, n int) []stores.Customer {
	out := make([]stores.Customer, n)
	for i := range out {
		first := firstNames[rng.IntN(len(firstNames))]
		last := lastNames[rng.IntN(len(lastNames))]
		loc := cities[rng.IntN(len(cities))]
		out[i] = stores.Customer{
			Name:   first + " " + last,
			Street: fmt.Sprintf("%d %s", intn(rng, 1, 9999), streets[rng.IntN(len(streets))]),
			City:   loc.city,
			State:  loc.state,
			Zip:    fmt.Sprintf("%05d", intn(rng, 1000, 99999)),
			Email:  fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), i+1),
			Phone:  fmt.Sprintf("555-%03d-%04d", intn(rng, 100, 999), rng.IntN(10000)),
		}
	}
	return out
}

// salaryBand is an annual salary range shared by a group of titles.
type salaryBand struct {
	titles []string
	lo, hi float64
}

var salaryBands = []salaryBand{
	{[]string{"CEO", "CFO"}, 120000, 150000},
	{[]string{"Operations Manager", "Quality Assurance Manager", "Warehouse Manager"}, 70000, 100000},
	{[]string{"Manufacturing Engineer", "Production Supervisor", "IT Support Specialist", "HR Manager"}, 55000, 75000},
	{[]string{"Test Engineer", "Accountant", "Production Planner"}, 50000, 70000},
	{[]string{"Assembly Worker", "Quality Inspector", "Shipping Clerk", "Inventory Manager",
		"Sales Representative", "Purchasing Agent", "Maintenance Technician", "Supply Chain Coordinator"}, 30000, 55000},
}

// JobTitles lists every title an employee can hold.
func JobTitles() []string {
	var out []string
	for _, b := range salaryBands {
		out = append(out, b.titles...)
	}
	return out
}

// SalaryBand returns the annual salary range of a title.
func SalaryBand(title string) (lo, hi float64, ok bool) {
	for _, b := range salaryBands {
		for _, t := range b.titles {
			if t == title {
				return b.lo, b.hi, true
			}
		}
	}
	return 0, 0, false
}

// GenerateEmployees returns n employees with title-banded weekly salaries.
func GenerateEmployees(rng *rand.Rand, n int) []stores.Employee {
	titles := JobTitles()
	out := make([]stores.Employee, n)
	for i := range out {
		title := titles[rng.IntN(len(titles))]
		lo, hi, _ := SalaryBand(title)
		out[i] = stores.Employee{
			Name:         firstNames[rng.IntN(len(firstNames))] + " " + lastNames[rng.IntN(len(lastNames))],
			Title:        title,
			WeeklySalary: round2(uniform(rng, lo, hi) / 52),
		}
	}
	return out
}

// partCategories maps part families to how many numbered variants exist.
var partCategories = []struct {
	name     string
	variants int
}{
	{"Screw", 20}, {"Bolt", 15}, {"Nut", 15}, {"Washer", 10}, {"Circuit-Board", 8},
	{"Panel", 12}, {"Cable", 10}, {"Connector", 15}, {"Housing", 6}, {"Display", 5},
	{"Button", 8}, {"Switch", 8}, {"Motor", 5}, {"Sensor", 10}, {"Battery", 4},
	{"LED", 12}, {"Capacitor", 20}, {"Resistor", 20}, {"Chip", 10}, {"Frame", 5},
}

func partName(rng *rand.Rand) string {
	c := partCategories[rng.IntN(len(partCategories))]
	return fmt.Sprintf("%s-%d", c.name, intn(rng, 1, c.variants))
}

// BOM generation bounds.
const (
	MinPartsPerWidget = 5
	MaxPartsPerWidget = 25
	SharedPartShare   = 0.15
	MinPartCost       = 0.25
	MaxPartCost       = 25.00
	MaxQtyPerWidget   = 20
)

// GenerateBOMs returns bills of materials for every widget type. Each widget
// gets its own parts plus a few drawn from a pool shared across widgets.
func GenerateBOMs(rng *rand.Rand) []stores.BOMLine {
	perWidget := make(map[stores.WidgetType][]string)
	var all []string
	seenAll := make(map[string]bool)

	for _, w := range stores.WidgetTypes {
		want := intn(rng, MinPartsPerWidget, MaxPartsPerWidget)
		seen := make(map[string]bool)
		for len(perWidget[w]) < want {
			p := partName(rng)
			if seen[p] {
				continue
			}
			seen[p] = true
			perWidget[w] = append(perWidget[w], p)
			if !seenAll[p] {
				seenAll[p] = true
				all = append(all, p)
			}
		}
	}

	shared := max(3, int(float64(len(all))*SharedPartShare))
	pool := sample(rng, all, shared)
	for _, w := range stores.WidgetTypes {
		k := intn(rng, 2, min(5, len(pool)))
		for _, p := range sample(rng, pool, k) {
			if !slices.Contains(perWidget[w], p) {
				perWidget[w] = append(perWidget[w], p)
			}
		}
	}

	var lines []stores.BOMLine
	for _, w := range stores.WidgetTypes {
		for _, p := range perWidget[w] {
			lines = append(lines, stores.BOMLine{
				Widget:    w,
				Part:      p,
				QtyNeeded: intn(rng, 1, MaxQtyPerWidget),
				UnitCost:  round2(uniform(rng, MinPartCost, MaxPartCost)),
			})
		}
	}
	return lines
}

// sample returns k distinct elements of items.
func sample(rng *rand.Rand, items []string, k int) []string {
	idx := rng.Perm(len(items))
	k = min(k, len(items))
	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = items[idx[i]]
	}
	return out
}
