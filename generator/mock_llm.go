package generator

import (
	"context"
	"strings"
)

// MockLLM returns a fixed, well-formed payload for local runs without an API key.
type MockLLM struct{}

const mockQuestion = `{"question": "مَا مَوْضُوعُ النَّصِّ؟", "options": ["الطَّبِيعَةُ", "الرِّيَاضَةُ", "التَّعْلِيمُ", "السَّفَرُ"], "correctAnswer": "C", "explanation": "النَّصُّ يَتَحَدَّثُ عَنِ التَّعْلِيمِ."}`

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	qs := strings.TrimSuffix(strings.Repeat(mockQuestion+",", QuestionCount), ",")
	if strings.Contains(prompt.User, `"title"`) {
		return `{"topic": "التَّعْلِيمُ", "title": "التَّعَلُّمُ فِي عَصْرِ التِّكْنُولُوجْيَا", ` +
			`"body": "يَتَغَيَّرُ التَّعْلِيمُ كُلَّ يَوْمٍ. تُسَاعِدُ التِّكْنُولُوجْيَا الطُّلَّابَ عَلَى التَّعَلُّمِ بِسُرْعَةٍ.", ` +
			`"questions": [` + qs + `], "imageUrl": ""}`, nil
	}
	return `{"questions": [` + qs + `]}`, nil
}
