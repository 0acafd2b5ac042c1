package emitter

import (
	"errors"

	"github.com/agbruneau/learning-events/internal/eventlog"
)

// Action est une interaction simulée du learner.
type Action func(l *eventlog.Logger)

// SessionScript définit une session d'entraînement simulée.
type SessionScript struct {
	UserID   string   // Identifiant du learner.
	Username string   // Nom affiché du learner.
	CaseID   string   // Cas clinique chargé.
	CaseName string   // Libellé du cas.
	Actions  []Action // Interactions jouées entre le début et la fin de session.
}

// DefaultScripts contient les scénarios joués en boucle par l'émetteur.
var DefaultScripts = []SessionScript{
	{
		UserID:   "learner01",
		Username: "Dr Chen",
		CaseID:   "case-chest-pain",
		CaseName: "Chest Pain 54M",
		Actions: []Action{
			func(l *eventlog.Logger) { l.ScenarioStarted("scn-acs", "Acute coronary syndrome") },
			func(l *eventlog.Logger) { l.MessageSent("Where exactly does it hurt?") },
			func(l *eventlog.Logger) { l.MessageReceived("In the middle of my chest, it spreads to my left arm.") },
			func(l *eventlog.Logger) { l.VitalsChecked("bedside monitor") },
			func(l *eventlog.Logger) { l.PanelOpened("Investigations") },
			func(l *eventlog.Logger) { l.LabOrdered("lab-trop", "Troponin I") },
			func(l *eventlog.Logger) { l.ImagingOrdered("img-ecg", "12-lead ECG") },
			func(l *eventlog.Logger) { l.PanelClosed("Investigations") },
			func(l *eventlog.Logger) { l.AlarmTriggered("alm-spo2", "SpO2 below 90%") },
			func(l *eventlog.Logger) { l.AlarmAcknowledged("alm-spo2", "SpO2 below 90%") },
			func(l *eventlog.Logger) { l.MedicationAdministered("med-asa", "Aspirin", "300 mg") },
			func(l *eventlog.Logger) { l.ResultViewed("lab-trop", "Troponin I") },
			func(l *eventlog.Logger) { l.DiagnosisSubmitted("NSTEMI", "correct") },
			func(l *eventlog.Logger) { l.ScenarioCompleted("scn-acs", "Acute coronary syndrome", "passed") },
			func(l *eventlog.Logger) { l.FeedbackReceived("fb-acs", "Aspirin given within 10 minutes") },
		},
	},
	{
		UserID:   "learner02",
		Username: "Dr Okafor",
		CaseID:   "case-dyspnea",
		CaseName: "Shortness of Breath 71F",
		Actions: []Action{
			func(l *eventlog.Logger) { l.SettingChanged("speech_rate", 1.0, 1.25) },
			func(l *eventlog.Logger) { l.MessageSent("How long have you been short of breath?") },
			func(l *eventlog.Logger) { l.MessageReceived("Since yesterday, worse when I lie down.") },
			func(l *eventlog.Logger) { l.ExamPerformed("chest", "bibasal crackles") },
			func(l *eventlog.Logger) { l.DrawerOpened("Medications") },
			func(l *eventlog.Logger) { l.ValidationError("dose", "dose must be a number") },
			func(l *eventlog.Logger) { l.MedicationAdministered("med-furo", "Furosemide", "40 mg IV") },
			func(l *eventlog.Logger) { l.DrawerClosed("Medications") },
			func(l *eventlog.Logger) { l.TabSwitched("Patient", "Results") },
			func(l *eventlog.Logger) {
				l.APIError("/api/results/bnp", 502, errors.New("upstream unavailable"))
			},
			func(l *eventlog.Logger) { l.TreatmentOrdered("trt-o2", "Oxygen 2 L/min") },
			func(l *eventlog.Logger) { l.DiagnosisSubmitted("Pneumonia", "incorrect") },
		},
	},
	{
		UserID:   "learner03",
		Username: "Dr Lindqvist",
		CaseID:   "case-sepsis",
		CaseName: "Fever and Confusion 80M",
		Actions: []Action{
			func(l *eventlog.Logger) { l.FeatureToggled("hints", true) },
			func(l *eventlog.Logger) { l.VitalsChecked("triage") },
			func(l *eventlog.Logger) { l.LabOrdered("lab-lact", "Lactate") },
			func(l *eventlog.Logger) { l.OrderCancelled("lab-lact", "Lactate") },
			func(l *eventlog.Logger) { l.ScenarioPaused("scn-sepsis", "Sepsis bundle") },
			func(l *eventlog.Logger) { l.SessionPaused() },
			func(l *eventlog.Logger) { l.ScenarioResumed("scn-sepsis", "Sepsis bundle") },
			func(l *eventlog.Logger) { l.TreatmentOrdered("trt-fluids", "Crystalloid 30 mL/kg") },
			func(l *eventlog.Logger) { l.ScenarioReset("scn-sepsis", "Sepsis bundle") },
		},
	},
}
