// Package mailer renders text and HTML mail templates, composes a multipart
// message with attachments and delivers it.
//
// Delivery is either inline through a Sender (SMTPSender) or handed to a
// background job runner through a Dispatcher. Two runners exist: Queue, an
// in-process worker pool that spills to disk when full, and the Kafka pair
// KafkaDispatcher/KafkaWorker.
package mailer
