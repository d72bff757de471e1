package config

type WorkerKeyStruct struct {
	AttemptResultsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	AttemptResultsQueue: "attempt_results_queue",
}
