package workflow

import "overdub/internal/queue"

// ConfigureStages registers the concrete stage handlers the workflow will
// run. The prepare lane covers CPU-light intake work; the dub lane carries
// the provider-bound stages so intake of job B never waits on synthesis of
// job A.
func (m *Manager) ConfigureStages(set StageSet) {
	prepare := &laneState{kind: lanePrepare, name: "prepare", notificationsEnabled: true}
	dub := &laneState{kind: laneDub, name: "dub", notificationsEnabled: false}

	if set.Extraction != nil {
		prepare.stages = append(prepare.stages, pipelineStage{
			name:             "extraction",
			handler:          set.Extraction,
			startStatus:      queue.StatusPending,
			processingStatus: queue.StatusExtracting,
			doneStatus:       queue.StatusExtracted,
		})
	}
	if set.Segmentation != nil {
		prepare.stages = append(prepare.stages, pipelineStage{
			name:             "segmentation",
			handler:          set.Segmentation,
			startStatus:      queue.StatusExtracted,
			processingStatus: queue.StatusSegmenting,
			doneStatus:       queue.StatusSegmented,
		})
	}
	if set.Dubbing != nil {
		dub.stages = append(dub.stages, pipelineStage{
			name:             "dubbing",
			handler:          set.Dubbing,
			startStatus:      queue.StatusSegmented,
			processingStatus: queue.StatusSynthesizing,
			doneStatus:       queue.StatusSynthesized,
		})
	}
	if set.Alignment != nil {
		dub.stages = append(dub.stages, pipelineStage{
			name:             "alignment",
			handler:          set.Alignment,
			startStatus:      queue.StatusSynthesized,
			processingStatus: queue.StatusAligning,
			doneStatus:       queue.StatusAligned,
		})
	}
	if set.Assembly != nil {
		dub.stages = append(dub.stages, pipelineStage{
			name:             "assembly",
			handler:          set.Assembly,
			startStatus:      queue.StatusAligned,
			processingStatus: queue.StatusAssembling,
			doneStatus:       queue.StatusAssembled,
		})
	}
	if set.Mux != nil {
		dub.stages = append(dub.stages, pipelineStage{
			name:             "mux",
			handler:          set.Mux,
			startStatus:      queue.StatusAssembled,
			processingStatus: queue.StatusMuxing,
			doneStatus:       queue.StatusCompleted,
		})
	}

	lanes := make(map[laneKind]*laneState)
	order := make([]laneKind, 0, 2)

	if len(prepare.stages) > 0 {
		prepare.finalize()
		lanes[prepare.kind] = prepare
		order = append(order, prepare.kind)
	}
	if len(dub.stages) > 0 {
		dub.finalize()
		lanes[dub.kind] = dub
		order = append(order, dub.kind)
	}

	for _, lane := range lanes {
		if lane == nil {
			continue
		}
		lane.runReclaimer = len(lane.processingStatuses) > 0
	}

	m.mu.Lock()
	m.lanes = lanes
	m.laneOrder = order
	m.mu.Unlock()
}
