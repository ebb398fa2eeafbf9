package config

type WorkerKeyStruct struct {
	FinalizeSubmissionsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	FinalizeSubmissionsQueue: "finalize_submissions_queue",
}
