package replay

const (
	WorkflowName    = "notification_replay"
	ActivityReplay  = "notification_replay_once"
	maxPassesPerRun = 20
)

type PassResult struct {
	Indexed  int `json:"indexed"`
	Notified int `json:"notified"`
	Failed   int `json:"failed"`
}

type RunResult struct {
	Passes   int `json:"passes"`
	Indexed  int `json:"indexed"`
	Notified int `json:"notified"`
	Failed   int `json:"failed"`
}
