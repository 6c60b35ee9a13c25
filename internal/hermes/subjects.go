package hermes

const (
	SubjectAnalysisRequest = "decision.analysis.request"
	SubjectStats           = "decision.stats"

	StreamName   = "DECISION_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

// StreamSubjects are captured by the JetStream stream. Intake requests are
// plain core NATS and stay out of the stream.
var StreamSubjects = []string{"decision.run.>", "decision.problem.>"}

func SubjectRunCreated(runID string) string   { return "decision.run." + runID + ".created" }
func SubjectRunStarted(runID string) string   { return "decision.run." + runID + ".started" }
func SubjectRunCompleted(runID string) string { return "decision.run." + runID + ".completed" }
func SubjectRunFailed(runID string) string    { return "decision.run." + runID + ".failed" }

func SubjectProblemCreated(problemID string) string { return "decision.problem." + problemID + ".created" }
func SubjectProblemDeleted(problemID string) string { return "decision.problem." + problemID + ".deleted" }
