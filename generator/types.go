package generator

import "arabic_content_publisher/content"

// QuestionCount is the fixed number of comprehension questions per item.
const QuestionCount = content.QuestionsPerItem

// Request describes the content to produce.
type Request struct {
	ContentType content.ContentType
	Level       content.Level
	Topic       string
}

// Generated is the validated model output with answers already converted to indices.
type Generated struct {
	Topic     string
	Title     string
	Body      string
	Questions []content.Question
	ImageURL  string
}
