package eventlog

import (
	"fmt"

	"github.com/agbruneau/learning-events/internal/taxonomy"
	"github.com/agbruneau/learning-events/pkg/models"
)

// Timing marks used by the wrappers.
const (
	sessionMark  = "session"
	responseMark = "message:response"
)

func panelMark(name string) string { return "panel:" + name }
func drawerMark(name string) string { return "drawer:" + name }
func alarmMark(id string) string { return "alarm:" + id }
func scenarioMark(id string) string { return "scenario:" + id }

// Session lifecycle

// SessionStarted sets the context and then logs STARTED_SESSION. The session
// timing mark is started so that SessionEnded carries the session duration.
func (l *Logger) SessionStarted(c Context) (models.Event, bool) {
	l.SetContext(c)
	l.StartTiming(sessionMark)
	return l.Log(taxonomy.StartedSession, taxonomy.ObjectSession, Options{ObjectID: l.CurrentContext().SessionID})
}

// SessionEnded logs ENDED_SESSION and then clears the session context.
func (l *Logger) SessionEnded(reason string) (models.Event, bool) {
	e, ok := l.Log(taxonomy.EndedSession, taxonomy.ObjectSession, Options{
		ObjectID:   l.CurrentContext().SessionID,
		Result:     reason,
		TimingMark: sessionMark,
	})
	l.ClearContext()
	return e, ok
}

// SessionResumed re-attaches to an existing session.
func (l *Logger) SessionResumed(sessionID string) (models.Event, bool) {
	l.SetContext(Context{SessionID: sessionID})
	return l.Log(taxonomy.ResumedSession, taxonomy.ObjectSession, Options{ObjectID: sessionID})
}

func (l *Logger) SessionPaused() (models.Event, bool) {
	return l.Log(taxonomy.PausedSession, taxonomy.ObjectSession, Options{ObjectID: l.CurrentContext().SessionID})
}

// CaseLoaded records the case and makes it part of the context.
func (l *Logger) CaseLoaded(caseID, caseName string) (models.Event, bool) {
	l.SetContext(Context{CaseID: caseID, CaseName: caseName})
	return l.Log(taxonomy.LoadedCase, taxonomy.ObjectCase, Options{ObjectID: caseID, ObjectName: caseName})
}

// Clinical actions

func (l *Logger) LabOrdered(testID, testName string) (models.Event, bool) {
	return l.Log(taxonomy.OrderedLab, taxonomy.ObjectLabTest, Options{
		ObjectID: testID, ObjectName: testName, Component: "InvestigationPanel",
	})
}

func (l *Logger) ImagingOrdered(studyID, studyName string) (models.Event, bool) {
	return l.Log(taxonomy.OrderedImaging, taxonomy.ObjectImaging, Options{
		ObjectID: studyID, ObjectName: studyName, Component: "InvestigationPanel",
	})
}

func (l *Logger) OrderCancelled(orderID, orderName string) (models.Event, bool) {
	return l.Log(taxonomy.CancelledOrder, taxonomy.ObjectOrder, Options{ObjectID: orderID, ObjectName: orderName})
}

func (l *Logger) ResultViewed(resultID, resultName string) (models.Event, bool) {
	return l.Log(taxonomy.ViewedResult, taxonomy.ObjectResult, Options{ObjectID: resultID, ObjectName: resultName})
}

// ExamPerformed records an examination of region and the finding shown.
func (l *Logger) ExamPerformed(region, finding string) (models.Event, bool) {
	return l.Log(taxonomy.PerformedExam, taxonomy.ObjectExam, Options{ObjectName: region, Result: finding})
}

// Treatment

func (l *Logger) MedicationAdministered(medicationID, name, dose string) (models.Event, bool) {
	opts := Options{ObjectID: medicationID, ObjectName: name}
	if dose != "" {
		opts.Context = map[string]any{"dose": dose}
	}
	return l.Log(taxonomy.AdministeredMedication, taxonomy.ObjectMedication, opts)
}

func (l *Logger) TreatmentOrdered(treatmentID, name string) (models.Event, bool) {
	return l.Log(taxonomy.OrderedTreatment, taxonomy.ObjectTreatment, Options{ObjectID: treatmentID, ObjectName: name})
}

// Communication

// MessageSent logs the learner's chat message and starts the response timer.
func (l *Logger) MessageSent(content string) (models.Event, bool) {
	l.StartTiming(responseMark)
	return l.Log(taxonomy.SentMessage, taxonomy.ObjectMessage, Options{
		Component:      "ChatInterface",
		MessageContent: content,
		MessageRole:    models.RoleUser,
	})
}

// MessageReceived logs the simulated patient's reply. Its duration is the
// time since the last MessageSent, if any.
func (l *Logger) MessageReceived(content string) (models.Event, bool) {
	return l.Log(taxonomy.ReceivedMessage, taxonomy.ObjectMessage, Options{
		Component:      "ChatInterface",
		MessageContent: content,
		MessageRole:    models.RoleAssistant,
		TimingMark:     responseMark,
	})
}

// Monitoring

// AlarmTriggered logs the alarm and starts timing the learner's response.
func (l *Logger) AlarmTriggered(alarmID, alarmName string) (models.Event, bool) {
	l.StartTiming(alarmMark(alarmID))
	return l.Log(taxonomy.TriggeredAlarm, taxonomy.ObjectAlarm, Options{ObjectID: alarmID, ObjectName: alarmName})
}

// AlarmAcknowledged carries the time since the matching AlarmTriggered.
func (l *Logger) AlarmAcknowledged(alarmID, alarmName string) (models.Event, bool) {
	return l.Log(taxonomy.AcknowledgedAlarm, taxonomy.ObjectAlarm, Options{
		ObjectID: alarmID, ObjectName: alarmName, TimingMark: alarmMark(alarmID),
	})
}

func (l *Logger) VitalsChecked(source string) (models.Event, bool) {
	return l.Log(taxonomy.CheckedVitals, taxonomy.ObjectVitals, Options{Component: source})
}

// Settings

func (l *Logger) SettingChanged(name string, oldValue, newValue any) (models.Event, bool) {
	return l.Log(taxonomy.ChangedSetting, taxonomy.ObjectSetting, Options{
		ObjectName: name,
		Result:     fmt.Sprint(newValue),
		Context:    map[string]any{"old_value": oldValue, "new_value": newValue},
	})
}

func (l *Logger) FeatureToggled(name string, enabled bool) (models.Event, bool) {
	result := "disabled"
	if enabled {
		result = "enabled"
	}
	return l.Log(taxonomy.ToggledFeature, taxonomy.ObjectFeature, Options{ObjectName: name, Result: result})
}

// Scenario lifecycle

func (l *Logger) ScenarioStarted(scenarioID, name string) (models.Event, bool) {
	l.StartTiming(scenarioMark(scenarioID))
	return l.Log(taxonomy.StartedScenario, taxonomy.ObjectScenario, Options{ObjectID: scenarioID, ObjectName: name})
}

func (l *Logger) ScenarioPaused(scenarioID, name string) (models.Event, bool) {
	return l.Log(taxonomy.PausedScenario, taxonomy.ObjectScenario, Options{ObjectID: scenarioID, ObjectName: name})
}

func (l *Logger) ScenarioResumed(scenarioID, name string) (models.Event, bool) {
	return l.Log(taxonomy.ResumedScenario, taxonomy.ObjectScenario, Options{ObjectID: scenarioID, ObjectName: name})
}

// ScenarioCompleted carries the time since ScenarioStarted for the same id.
func (l *Logger) ScenarioCompleted(scenarioID, name, outcome string) (models.Event, bool) {
	return l.Log(taxonomy.CompletedScenario, taxonomy.ObjectScenario, Options{
		ObjectID: scenarioID, ObjectName: name, Result: outcome, TimingMark: scenarioMark(scenarioID),
	})
}

// ScenarioReset restarts the scenario clock.
func (l *Logger) ScenarioReset(scenarioID, name string) (models.Event, bool) {
	l.StartTiming(scenarioMark(scenarioID))
	return l.Log(taxonomy.ResetScenario, taxonomy.ObjectScenario, Options{ObjectID: scenarioID, ObjectName: name})
}

// Assessment

func (l *Logger) DiagnosisSubmitted(diagnosis, result string) (models.Event, bool) {
	return l.Log(taxonomy.SubmittedDiagnosis, taxonomy.ObjectDiagnosis, Options{ObjectName: diagnosis, Result: result})
}

func (l *Logger) FeedbackReceived(feedbackID, summary string) (models.Event, bool) {
	return l.Log(taxonomy.ReceivedFeedback, taxonomy.ObjectFeedback, Options{ObjectID: feedbackID, Result: summary})
}

// Panels, drawers and tabs. Opening starts a timing mark that the matching
// close consumes, so close events carry how long the element stayed open.

func (l *Logger) PanelOpened(name string) (models.Event, bool) {
	l.StartTiming(panelMark(name))
	return l.Log(taxonomy.Opened, taxonomy.ObjectPanel, Options{ObjectName: name, Component: name})
}

func (l *Logger) PanelClosed(name string) (models.Event, bool) {
	return l.Log(taxonomy.Closed, taxonomy.ObjectPanel, Options{ObjectName: name, Component: name, TimingMark: panelMark(name)})
}

func (l *Logger) DrawerOpened(name string) (models.Event, bool) {
	l.StartTiming(drawerMark(name))
	return l.Log(taxonomy.Opened, taxonomy.ObjectDrawer, Options{ObjectName: name, Component: name})
}

func (l *Logger) DrawerClosed(name string) (models.Event, bool) {
	return l.Log(taxonomy.Closed, taxonomy.ObjectDrawer, Options{ObjectName: name, Component: name, TimingMark: drawerMark(name)})
}

func (l *Logger) TabSwitched(from, to string) (models.Event, bool) {
	return l.Log(taxonomy.SwitchedTab, taxonomy.ObjectTab, Options{ObjectName: to, Context: map[string]any{"from": from}})
}

// Errors. ErrorOccurred and APIError are always CRITICAL so that no severity
// filter can hide operational failures.

func (l *Logger) ErrorOccurred(err error, component string) (models.Event, bool) {
	return l.Log(taxonomy.ErrorOccurred, taxonomy.ObjectError, Options{
		Severity:  models.SeverityCritical,
		Component: component,
		Result:    errorText(err),
	})
}

func (l *Logger) APIError(endpoint string, status int, err error) (models.Event, bool) {
	opts := Options{
		Severity:   models.SeverityCritical,
		ObjectName: endpoint,
		Result:     errorText(err),
	}
	if status > 0 {
		opts.Context = map[string]any{"status": status}
	}
	return l.Log(taxonomy.APIError, taxonomy.ObjectAPI, opts)
}

func (l *Logger) ValidationError(field, message string) (models.Event, bool) {
	return l.Log(taxonomy.ValidationError, taxonomy.ObjectError, Options{ObjectName: field, Result: message})
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
