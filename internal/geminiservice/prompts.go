package geminiservice

import (
	"fmt"
	"slices"
)

// This file stores the prompts sent to the model and the option lists the page
// offers. Edit the text here; nothing else formats prompts.

// Durations are the plan lengths offered in the "Plan Duration" dropdown.
var Durations = []string{"3 days", "5 days", "7 days", "14 days"}

// HealthFocuses are the options offered in the "Health Focus" dropdown.
var HealthFocuses = []string{
	"General Wellness", "Weight Management", "Heart Health",
	"Diabetes Management", "Gut Health", "Energy Boost",
	"Immune Support", "Muscle Building", "Anti-Inflammatory",
}

const (
	DefaultDuration    = "5 days"
	DefaultHealthFocus = "General Wellness"
)

// HealthAnalysisPrompt asks for a general health assessment.
const HealthAnalysisPrompt = `
You are a helpful health assistant. The user wants general health analysis and recommendations.

Provide:
1. Comprehensive health assessment based on current best practices
2. Lifestyle recommendations (sleep, exercise, stress management)
3. Nutritional guidance
4. Preventive health measures
5. When to consult healthcare professionals

Format the response in clear sections with emojis.
Include practical, actionable advice.

IMPORTANT: Always state that this is not medical advice and to consult healthcare providers.
`

// MealPlanPromptTemplate takes, in order: duration, health focus, health focus.
const MealPlanPromptTemplate = `
Create a detailed %s meal plan for %s.

Include:
- Breakfast, Lunch, Dinner for each day
- Two healthy snacks per day
- Nutritional information and benefits
- Shopping list suggestions
- Preparation tips
- Calorie range (if appropriate)
- Hydration recommendations

Make it practical, diverse, and delicious.
Use common ingredients that are easy to find.

For %s, focus on appropriate nutritional needs.

Format with clear daily sections and use food emojis.

DISCLAIMER: This is general nutritional advice, not medical prescription.
`

// HealthTipsPrompt asks for general wellness tips.
const HealthTipsPrompt = `
Provide comprehensive health and wellness tips covering:

1. Nutrition and Diet 🍎
2. Physical Activity 🏃‍♂️
3. Mental Health 🧠
4. Sleep Hygiene 😴
5. Preventive Care 🛡️
6. Healthy Habits 📋

For each category, provide 5-7 practical, evidence-based tips.
Use emojis and make it engaging but professional.
Include both immediate actions and long-term habits.

Keep the tone encouraging and motivational.
`

// BuildMealPlanPrompt substitutes the chosen duration and focus verbatim.
func BuildMealPlanPrompt(duration, healthFocus string) string {
	return fmt.Sprintf(MealPlanPromptTemplate, duration, healthFocus, healthFocus)
}

func IsValidDuration(duration string) bool {
	return slices.Contains(Durations, duration)
}

func IsValidHealthFocus(healthFocus string) bool {
	return slices.Contains(HealthFocuses, healthFocus)
}
