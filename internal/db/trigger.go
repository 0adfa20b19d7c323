package db

// EmergencyChannel is the LISTEN/NOTIFY channel new reports are published on.
const EmergencyChannel = "emergency_created"

// EmergencyTriggerSQL publishes the id of each inserted emergency report.
// The payload stays small and fixed in size; listeners load the row with
// the emergency_by_id statement. pg_notify is transactional, so listeners
// only hear about reports that committed, and a failed notify never aborts
// the INSERT.
const EmergencyTriggerSQL = `
CREATE OR REPLACE FUNCTION notify_emergency_created() RETURNS trigger AS $$
BEGIN
	BEGIN
		PERFORM pg_notify('` + EmergencyChannel + `', json_build_object(
			'emergency_id', NEW.id::text,
			'user_id',      NEW.user_id::text
		)::text);
	EXCEPTION WHEN OTHERS THEN
		RAISE WARNING 'notify_emergency_created(%): %', NEW.id, SQLERRM;
	END;
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS emergency_reports_notify ON emergency_reports;
CREATE TRIGGER emergency_reports_notify
	AFTER INSERT ON emergency_reports
	FOR EACH ROW EXECUTE FUNCTION notify_emergency_created();
`
