package advisor

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ayush/finance-advisor/internal/models"
)

const adviceInstructions = `Given the user prompt and user profile, give the response according to the user's question. If the question is general, provide a general response.
If the user is asking for advice or any other help, use the information of the user profile to provide a good response. Do not give advice if not asked for it.
Structure your response in Markdown format. Do not start the response with "Assistant" or "Response".`

const strategyInstructions = `Given the user's financial profile and goal details, generate a personalized strategy to help them achieve this financial goal. Include specific recommendations, potential challenges, and actionable steps. Structure your response in Markdown format.
Do not address the user by name and do not leave placeholders. Do not start the response with "Assistant" or "Response".`

// BuildAdvicePrompt renders the profile, question and area into a single user prompt.
// The output depends only on its inputs.
func BuildAdvicePrompt(u *models.User, question string, area models.AdviceArea) string {
	var b strings.Builder
	writeProfile(&b, u)
	fmt.Fprintf(&b, "\nQuestion: %s\n", strings.TrimSpace(question))
	fmt.Fprintf(&b, "Area of Interest: %s\n\n", area)
	b.WriteString(adviceInstructions)
	return b.String()
}

// BuildGoalStrategyPrompt renders the profile and one goal. now fixes the
// months-remaining arithmetic so the output is reproducible.
func BuildGoalStrategyPrompt(u *models.User, g *models.Goal, now time.Time) string {
	var b strings.Builder
	writeProfile(&b, u)

	target := decimal.NewFromFloat(g.TargetAmount)
	current := decimal.NewFromFloat(g.CurrentAmount)
	remaining := decimal.Max(target.Sub(current), decimal.Zero)
	months := monthsUntil(now, g.TargetDate)

	b.WriteString("\nGoal Details:\n")
	fmt.Fprintf(&b, "- Type: %s\n", g.Type)
	fmt.Fprintf(&b, "- Target Amount: %s\n", money(target))
	fmt.Fprintf(&b, "- Current Amount: %s\n", money(current))
	fmt.Fprintf(&b, "- Remaining: %s\n", money(remaining))
	fmt.Fprintf(&b, "- Target Date: %s\n", g.TargetDate.UTC().Format("2006-01-02"))
	if months > 0 {
		monthly := remaining.Div(decimal.NewFromInt(int64(months)))
		fmt.Fprintf(&b, "- Months Remaining: %d\n", months)
		fmt.Fprintf(&b, "- Required Monthly Contribution: %s\n", money(monthly))
	} else {
		b.WriteString("- Months Remaining: 0 (target date has passed)\n")
	}
	b.WriteString("\n")
	b.WriteString(strategyInstructions)
	return b.String()
}

func writeProfile(b *strings.Builder, u *models.User) {
	income := decimal.NewFromFloat(u.AnnualIncome)
	total := decimal.Zero
	for _, v := range u.MonthlyExpenses {
		total = total.Add(decimal.NewFromFloat(v))
	}
	surplus := income.Div(decimal.NewFromInt(12)).Sub(total)

	goals := make([]string, len(u.FinancialGoals))
	for i, g := range u.FinancialGoals {
		goals[i] = string(g)
	}
	risk := u.RiskTolerance
	if risk == "" {
		risk = models.RiskMedium
	}

	b.WriteString("User Profile:\n")
	fmt.Fprintf(b, "- Annual Income: %s\n", money(income))
	fmt.Fprintf(b, "- Monthly Expenses: %s\n", expensesJSON(u.MonthlyExpenses))
	fmt.Fprintf(b, "- Total Monthly Expenses: %s\n", money(total))
	fmt.Fprintf(b, "- Estimated Monthly Surplus: %s\n", money(surplus))
	fmt.Fprintf(b, "- Current Savings: %s\n", money(decimal.NewFromFloat(u.CurrentSavings)))
	fmt.Fprintf(b, "- Financial Goals: %s\n", strings.Join(goals, ", "))
	fmt.Fprintf(b, "- Risk Tolerance: %s\n", risk)
}

// expensesJSON marshals with sorted keys (encoding/json sorts map keys).
func expensesJSON(m map[string]float64) string {
	if m == nil {
		m = map[string]float64{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// monthsUntil counts whole calendar months from now to target, never negative.
func monthsUntil(now, target time.Time) int {
	now, target = now.UTC(), target.UTC()
	months := (target.Year()-now.Year())*12 + int(target.Month()-now.Month())
	if target.Day() < now.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
