// timer/timer.go
package timer

import (
	"container/heap"
	"sync"
	"time"
)

// Task is one scheduled callback. Interval > 0 makes it repeat. The
// callback receives its own task ID so a repeating task can remove
// itself without racing on a captured variable.
type Task struct {
	ID       int64
	Execute  time.Time
	Interval time.Duration
	Callback func(taskID int64)
	index    int
}

type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	return q[i].Execute.Before(q[j].Execute)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	n := len(*q)
	task := x.(*Task)
	task.index = n
	*q = append(*q, task)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	task := old[n-1]
	task.index = -1
	*q = old[0 : n-1]
	return task
}

// Manager drives the betting countdowns: one repeating task per open
// betting window. Callbacks run on their own goroutine; anything they
// mutate is protected by the per-game lock, not by the timer.
type Manager struct {
	queue     taskQueue
	mutex     sync.Mutex
	nextID    int64
	closeChan chan struct{}
	closeOnce sync.Once
}

func NewManager() *Manager {
	m := &Manager{
		queue:     make(taskQueue, 0),
		nextID:    1,
		closeChan: make(chan struct{}),
	}
	heap.Init(&m.queue)
	go m.process()
	return m
}

// Add schedules a callback after delay; a non-zero interval repeats it.
func (m *Manager) Add(delay, interval time.Duration, callback func(taskID int64)) int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	task := &Task{
		ID:       m.nextID,
		Execute:  time.Now().Add(delay),
		Interval: interval,
		Callback: callback,
	}
	m.nextID++

	heap.Push(&m.queue, task)
	return task.ID
}

// Remove cancels a scheduled task. Removing an already-fired one-shot
// task is a no-op.
func (m *Manager) Remove(taskID int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for i, task := range m.queue {
		if task.ID == taskID {
			heap.Remove(&m.queue, i)
			break
		}
	}
}

func (m *Manager) Stop() {
	m.closeOnce.Do(func() {
		close(m.closeChan)
	})
}

func (m *Manager) process() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.runDue()
		case <-m.closeChan:
			return
		}
	}
}

func (m *Manager) runDue() {
	m.mutex.Lock()
	now := time.Now()

	var due []*Task
	for m.queue.Len() > 0 {
		task := m.queue[0]
		if task.Execute.After(now) {
			break
		}
		heap.Pop(&m.queue)
		due = append(due, task)

		if task.Interval > 0 {
			task.Execute = now.Add(task.Interval)
			heap.Push(&m.queue, task)
		}
	}
	m.mutex.Unlock()

	for _, task := range due {
		go task.Callback(task.ID)
	}
}
