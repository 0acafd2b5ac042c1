package taxonomy

import "github.com/agbruneau/learning-events/pkg/models"

// Session lifecycle
const (
	StartedSession models.Verb = "STARTED_SESSION"
	EndedSession   models.Verb = "ENDED_SESSION"
	ResumedSession models.Verb = "RESUMED_SESSION"
	PausedSession  models.Verb = "PAUSED_SESSION"
)

// Navigation and UI
const (
	Viewed      models.Verb = "VIEWED"
	Opened      models.Verb = "OPENED"
	Closed      models.Verb = "CLOSED"
	Navigated   models.Verb = "NAVIGATED"
	SwitchedTab models.Verb = "SWITCHED_TAB"
	Expanded    models.Verb = "EXPANDED"
	Collapsed   models.Verb = "COLLAPSED"
	Scrolled    models.Verb = "SCROLLED"
	Clicked     models.Verb = "CLICKED"
)

// Clinical and lab actions
const (
	OrderedLab      models.Verb = "ORDERED_LAB"
	OrderedImaging  models.Verb = "ORDERED_IMAGING"
	CancelledOrder  models.Verb = "CANCELLED_ORDER"
	ViewedResult    models.Verb = "VIEWED_RESULT"
	PerformedExam   models.Verb = "PERFORMED_EXAM"
	RecordedFinding models.Verb = "RECORDED_FINDING"
)

// Treatment
const (
	AdministeredMedication models.Verb = "ADMINISTERED_MEDICATION"
	OrderedTreatment       models.Verb = "ORDERED_TREATMENT"
	PerformedProcedure     models.Verb = "PERFORMED_PROCEDURE"
	DiscontinuedTreatment  models.Verb = "DISCONTINUED_TREATMENT"
)

// Communication
const (
	SentMessage      models.Verb = "SENT_MESSAGE"
	ReceivedMessage  models.Verb = "RECEIVED_MESSAGE"
	RequestedConsult models.Verb = "REQUESTED_CONSULT"
)

// Monitoring and alarms
const (
	AcknowledgedAlarm models.Verb = "ACKNOWLEDGED_ALARM"
	TriggeredAlarm    models.Verb = "TRIGGERED_ALARM"
	SilencedAlarm     models.Verb = "SILENCED_ALARM"
	CheckedVitals     models.Verb = "CHECKED_VITALS"
)

// Settings
const (
	ChangedSetting models.Verb = "CHANGED_SETTING"
	ToggledFeature models.Verb = "TOGGLED_FEATURE"
)

// Case and scenario lifecycle
const (
	LoadedCase        models.Verb = "LOADED_CASE"
	StartedScenario   models.Verb = "STARTED_SCENARIO"
	PausedScenario    models.Verb = "PAUSED_SCENARIO"
	ResumedScenario   models.Verb = "RESUMED_SCENARIO"
	CompletedScenario models.Verb = "COMPLETED_SCENARIO"
	ResetScenario     models.Verb = "RESET_SCENARIO"
)

// Assessment
const (
	SubmittedDiagnosis  models.Verb = "SUBMITTED_DIAGNOSIS"
	SubmittedAssessment models.Verb = "SUBMITTED_ASSESSMENT"
	ReceivedScore       models.Verb = "RECEIVED_SCORE"
	ReceivedFeedback    models.Verb = "RECEIVED_FEEDBACK"
)

// Errors
const (
	ErrorOccurred   models.Verb = "ERROR_OCCURRED"
	APIError        models.Verb = "API_ERROR"
	ValidationError models.Verb = "VALIDATION_ERROR"
)

// Object types
const (
	ObjectSession    models.ObjectType = "SESSION"
	ObjectCase       models.ObjectType = "CASE"
	ObjectScenario   models.ObjectType = "SCENARIO"
	ObjectLabTest    models.ObjectType = "LAB_TEST"
	ObjectImaging    models.ObjectType = "IMAGING"
	ObjectOrder      models.ObjectType = "ORDER"
	ObjectResult     models.ObjectType = "RESULT"
	ObjectMedication models.ObjectType = "MEDICATION"
	ObjectTreatment  models.ObjectType = "TREATMENT"
	ObjectProcedure  models.ObjectType = "PROCEDURE"
	ObjectMessage    models.ObjectType = "MESSAGE"
	ObjectAlarm      models.ObjectType = "ALARM"
	ObjectVitals     models.ObjectType = "VITALS"
	ObjectSetting    models.ObjectType = "SETTING"
	ObjectFeature    models.ObjectType = "FEATURE"
	ObjectPanel      models.ObjectType = "PANEL"
	ObjectDrawer     models.ObjectType = "DRAWER"
	ObjectTab        models.ObjectType = "TAB"
	ObjectExam       models.ObjectType = "EXAM"
	ObjectFinding    models.ObjectType = "FINDING"
	ObjectDiagnosis  models.ObjectType = "DIAGNOSIS"
	ObjectAssessment models.ObjectType = "ASSESSMENT"
	ObjectFeedback   models.ObjectType = "FEEDBACK"
	ObjectAPI        models.ObjectType = "API"
	ObjectError      models.ObjectType = "ERROR"
	ObjectComponent  models.ObjectType = "COMPONENT"
)

const (
	debug     = models.SeverityDebug
	info      = models.SeverityInfo
	action    = models.SeverityAction
	important = models.SeverityImportant
	critical  = models.SeverityCritical
)

// defaultGroups returns the built-in verb registry.
func defaultGroups() []Group {
	return []Group{
		{
			Name: "session",
			Entries: []Entry{
				{StartedSession, important, models.CategorySession, "Learner started a simulation session"},
				{EndedSession, important, models.CategorySession, "Learner ended a simulation session"},
				{ResumedSession, action, models.CategorySession, "Learner resumed an earlier session"},
				{PausedSession, action, models.CategorySession, "Learner paused the session"},
			},
		},
		{
			Name: "navigation",
			Entries: []Entry{
				{Viewed, info, models.CategoryNavigation, "A view was displayed"},
				{Opened, info, models.CategoryNavigation, "A panel, drawer or dialog was opened"},
				{Closed, info, models.CategoryNavigation, "A panel, drawer or dialog was closed"},
				{Navigated, info, models.CategoryNavigation, "Learner moved to another screen"},
				{SwitchedTab, info, models.CategoryNavigation, "Learner switched tab"},
				{Expanded, debug, models.CategoryNavigation, "A section was expanded"},
				{Collapsed, debug, models.CategoryNavigation, "A section was collapsed"},
				{Scrolled, debug, models.CategoryNavigation, "Learner scrolled a list"},
				{Clicked, debug, models.CategoryNavigation, "Generic click"},
			},
		},
		{
			Name: "clinical",
			Entries: []Entry{
				{OrderedLab, action, models.CategoryClinical, "Lab investigation ordered"},
				{OrderedImaging, action, models.CategoryClinical, "Imaging study ordered"},
				{CancelledOrder, action, models.CategoryClinical, "Pending order cancelled"},
				{ViewedResult, action, models.CategoryClinical, "Investigation result viewed"},
				{PerformedExam, action, models.CategoryClinical, "Physical examination performed"},
				{RecordedFinding, action, models.CategoryClinical, "Exam finding recorded"},
			},
		},
		{
			Name: "treatment",
			Entries: []Entry{
				{AdministeredMedication, important, models.CategoryClinical, "Medication given to the patient"},
				{OrderedTreatment, important, models.CategoryClinical, "Treatment ordered"},
				{PerformedProcedure, important, models.CategoryClinical, "Procedure performed"},
				{DiscontinuedTreatment, action, models.CategoryClinical, "Treatment stopped"},
			},
		},
		{
			Name: "communication",
			Entries: []Entry{
				{SentMessage, action, models.CategoryCommunication, "Learner sent a message to the patient"},
				{ReceivedMessage, info, models.CategoryCommunication, "Simulated patient replied"},
				{RequestedConsult, action, models.CategoryCommunication, "Specialist consult requested"},
			},
		},
		{
			Name: "monitoring",
			Entries: []Entry{
				{AcknowledgedAlarm, important, models.CategoryMonitoring, "Monitor alarm acknowledged"},
				{TriggeredAlarm, important, models.CategoryMonitoring, "Monitor alarm fired"},
				{SilencedAlarm, important, models.CategoryMonitoring, "Monitor alarm silenced"},
				{CheckedVitals, action, models.CategoryMonitoring, "Vital signs reviewed"},
			},
		},
		{
			Name: "settings",
			Entries: []Entry{
				{ChangedSetting, info, models.CategoryConfiguration, "A setting value changed"},
				{ToggledFeature, info, models.CategoryConfiguration, "A feature toggle flipped"},
			},
		},
		{
			Name: "scenario",
			Entries: []Entry{
				{LoadedCase, important, models.CategorySession, "Clinical case loaded"},
				{StartedScenario, important, models.CategorySession, "Scenario started"},
				{PausedScenario, action, models.CategorySession, "Scenario paused"},
				{ResumedScenario, action, models.CategorySession, "Scenario resumed"},
				{CompletedScenario, important, models.CategorySession, "Scenario completed"},
				{ResetScenario, action, models.CategorySession, "Scenario reset to its initial state"},
			},
		},
		{
			Name: "assessment",
			Entries: []Entry{
				{SubmittedDiagnosis, important, models.CategoryAssessment, "Working diagnosis submitted"},
				{SubmittedAssessment, important, models.CategoryAssessment, "Assessment form submitted"},
				{ReceivedScore, important, models.CategoryAssessment, "Score returned to the learner"},
				{ReceivedFeedback, info, models.CategoryAssessment, "Feedback shown to the learner"},
			},
		},
		{
			Name: "error",
			Entries: []Entry{
				{ErrorOccurred, critical, models.CategoryError, "Unexpected application error"},
				{APIError, critical, models.CategoryError, "Backend call failed"},
				{ValidationError, important, models.CategoryError, "User input rejected"},
			},
		},
	}
}
