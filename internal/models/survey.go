package models

import "time"

// Category is one of the five fixed rating dimensions.
type Category string

const (
	CategoryQuality        Category = "QUALITY"
	CategoryDelivery       Category = "DELIVERY"
	CategoryCommunication  Category = "COMMUNICATION"
	CategoryResponsiveness Category = "RESPONSIVENESS"
	CategoryImprovement    Category = "IMPROVEMENT"
)

// Categories lists the scored categories in reporting order.
var Categories = []Category{
	CategoryQuality,
	CategoryDelivery,
	CategoryCommunication,
	CategoryResponsiveness,
	CategoryImprovement,
}

// QuestionsPerCategory is the number of ratings a category needs to be scored.
const QuestionsPerCategory = 4

// QuestionType enumerates answer shapes.
type QuestionType string

const (
	QuestionTypeRating         QuestionType = "rating"
	QuestionTypeText           QuestionType = "text"
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
)

// Survey is the standing artifact "managing department rates rated department".
type Survey struct {
	ID                   string    `db:"id" json:"id"`
	Title                string    `db:"title" json:"title"`
	Description          string    `db:"description" json:"description"`
	RatedDepartmentID    string    `db:"rated_department_id" json:"ratedDepartmentId"`
	ManagingDepartmentID string    `db:"managing_department_id" json:"managingDepartmentId"`
	CreatedAt            time.Time `db:"created_at" json:"createdAt"`
}

// Pair returns the survey's catalog key.
func (s Survey) Pair() DepartmentPair {
	return DepartmentPair{RatedDepartmentID: s.RatedDepartmentID, ManagingDepartmentID: s.ManagingDepartmentID}
}

// Question belongs to a survey.
type Question struct {
	ID       string       `db:"id" json:"id"`
	SurveyID string       `db:"survey_id" json:"surveyId"`
	Text     string       `db:"text" json:"text"`
	Type     QuestionType `db:"type" json:"type"`
	Order    int          `db:"order" json:"order"`
	Category Category     `db:"category" json:"category"`
}

// QuestionTemplate is a row of the standard questionnaire.
type QuestionTemplate struct {
	Category Category
	Text     string
	Order    int
}

// StandardQuestions is seeded into every survey the synchronizer creates.
var StandardQuestions = []QuestionTemplate{
	{CategoryQuality, "Understands Customer needs", 1},
	{CategoryQuality, "Provides 100% quality parts / service / information", 2},
	{CategoryQuality, "Accepts responsibility for quality works", 3},
	{CategoryQuality, "Eliminates repetitive complaints", 4},
	{CategoryDelivery, "Fulfill 100% committed targets in service / information", 5},
	{CategoryDelivery, "Delivers promptly on time", 6},
	{CategoryDelivery, "Delivers to point of use", 7},
	{CategoryDelivery, "Delivers usable parts / service / information", 8},
	{CategoryCommunication, "Interacts with customer regularly", 9},
	{CategoryCommunication, "Listens to customers views", 10},
	{CategoryCommunication, "Ensures timely feedback to customers", 11},
	{CategoryCommunication, "Reviews of changes with the customer", 12},
	{CategoryResponsiveness, "Responds to customer complaints promptly", 13},
	{CategoryResponsiveness, "Provides service when needed", 14},
	{CategoryResponsiveness, "Responds quickly to changed customer needs", 15},
	{CategoryResponsiveness, "Goes extra mile to help", 16},
	{CategoryImprovement, "Has a positive attitude for improvement", 17},
	{CategoryImprovement, "Implements improvement", 18},
	{CategoryImprovement, "Effectiveness of improvements", 19},
	{CategoryImprovement, "Facilitates improvements at customer end", 20},
}
